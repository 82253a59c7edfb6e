package mcp

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"liquidity-mcs/internal/config"
	"liquidity-mcs/internal/runner"
)

// Server wraps the MCP SDK server and routes tool calls to the simulator.
type Server struct {
	server *sdk.Server
	app    *config.AppConfig
	runner *runner.Runner
}

// Config holds server configuration.
type Config struct {
	Name    string
	Version string
	App     *config.AppConfig
}

// NewServer creates a new MCP server with the liquidity tools registered.
// All simulating tools share one runner, so a newer call supersedes an older one.
func NewServer(cfg *Config, sim runner.Simulator) *Server {
	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			log.Info().Msg("MCP client initialized")
		},
	})

	s := &Server{
		server: mcpServer,
		app:    cfg.App,
		runner: runner.New(sim),
	}
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects, the context ends or
// the process receives SIGINT/SIGTERM.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			log.Info().Msg("Shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info().Msg("MCP server listening on stdio")
	err := s.server.Run(ctx, &sdk.StdioTransport{})
	s.runner.Cancel()
	return err
}
