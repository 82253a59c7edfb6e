package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"liquidity-mcs/internal/scenario"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of scenario documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Schema()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	},
}
