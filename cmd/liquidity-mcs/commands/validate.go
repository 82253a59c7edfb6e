package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"liquidity-mcs/internal/cli"
	"liquidity-mcs/internal/scenario"
	"liquidity-mcs/internal/simulation"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario>...",
	Short: "Check scenario files without simulating",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			req, err := scenario.Load(cfg.ResolveScenario(path))
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
				continue
			}
			cfg.ApplyRequestDefaults(&req)

			err = simulation.Validate(simulation.ApplyDefaults(req))
			var verrs simulation.ValidationErrors
			switch {
			case err == nil:
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d months from %s)\n", path, req.Project.DurationMonths, req.Project.StartMonth)
			case errors.As(err, &verrs):
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d problem(s)\n", path, len(verrs))
				fmt.Fprint(cmd.OutOrStdout(), cli.RenderValidation(verrs))
				failed++
			default:
				return err
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d scenario(s) failed validation", failed, len(args))
		}
		return nil
	},
}
