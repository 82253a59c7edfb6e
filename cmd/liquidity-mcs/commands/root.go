package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"liquidity-mcs/internal/config"
	"liquidity-mcs/internal/logging"
	"liquidity-mcs/internal/mcp"
	"liquidity-mcs/internal/simulation"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "liquidity-mcs",
	Short: "Monte Carlo cash-flow liquidity risk simulator",
	Long: `liquidity-mcs forecasts monthly funding shortfalls of a project portfolio by Monte Carlo
simulation of costs, invoice lags and inflows. It runs as an MCP server (default), an HTTP API
or a one-shot command line tool.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("dataPath", cfg.DataPath).
			Msg("liquidity-mcs starting")
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

// newEngine builds the simulation engine from configuration.
func newEngine() *simulation.Engine {
	return simulation.NewEngine(
		simulation.WithWorkers(cfg.Simulation.Workers),
		simulation.WithAttributionTrials(cfg.Simulation.AttributionTrials),
	)
}

func runMCP(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Config{Name: "liquidity-mcs", Version: Version, App: cfg}, newEngine())
	return server.Run(ctx)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the simulator as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(mcpCmd, simulateCmd, validateCmd, serveCmd, schemaCmd)
}
