package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"liquidity-mcs/internal/cli"
	"liquidity-mcs/internal/runner"
	"liquidity-mcs/internal/scenario"
	"liquidity-mcs/internal/simulation"
)

var simulateFlags struct {
	trials     int
	seed       int64
	volatility float64
	jsonOut    bool
	outFile    string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario>",
	Short: "Run one simulation and print the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := scenario.Load(cfg.ResolveScenario(args[0]))
		if err != nil {
			return err
		}
		if simulateFlags.trials > 0 {
			req.Trials = simulateFlags.trials
		}
		if simulateFlags.seed != 0 {
			req.Seed = simulateFlags.seed
		}
		if simulateFlags.volatility > 0 {
			req.VolatilityScale = simulateFlags.volatility
		}
		cfg.ApplyRequestDefaults(&req)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		resp, err := runner.New(newEngine()).Run(ctx, req)
		if err != nil {
			var verrs simulation.ValidationErrors
			if errors.As(err, &verrs) {
				fmt.Fprint(cmd.ErrOrStderr(), cli.RenderValidation(verrs))
				return fmt.Errorf("scenario has %d problem(s)", len(verrs))
			}
			if errors.Is(err, context.Canceled) {
				return errors.New("simulation interrupted")
			}
			return err
		}

		if simulateFlags.outFile != "" {
			data, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(simulateFlags.outFile, data, 0644); err != nil {
				return fmt.Errorf("write results: %w", err)
			}
		}

		if simulateFlags.jsonOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}
		fmt.Fprint(cmd.OutOrStdout(), cli.RenderResponse(req.Project.Name, resp))
		return nil
	},
}

func init() {
	f := simulateCmd.Flags()
	f.IntVarP(&simulateFlags.trials, "trials", "n", 0, "number of trials (default from DEFAULT_TRIALS)")
	f.Int64Var(&simulateFlags.seed, "seed", 0, "master seed (default from DEFAULT_SEED)")
	f.Float64Var(&simulateFlags.volatility, "volatility-scale", 0, "stress multiplier on material volatility")
	f.BoolVar(&simulateFlags.jsonOut, "json", false, "print the raw JSON response instead of tables")
	f.StringVarP(&simulateFlags.outFile, "output", "o", "", "also write the JSON response to this file")
}
