package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"liquidity-mcs/internal/simulation"
)

// AppConfig holds the complete application configuration.
type AppConfig struct {
	DataPath            string
	ScenarioDir         string
	EnableMermaidCharts bool

	Simulation SimulationConfig
	HTTP       HTTPConfig
}

// SimulationConfig holds engine defaults and limits.
type SimulationConfig struct {
	DefaultTrials     int
	DefaultSeed       int64
	AttributionTrials int
	Workers           int
	MaxTrials         int
}

// HTTPConfig holds the settings of the `serve` command.
type HTTPConfig struct {
	Addr        string
	Env         string
	CORSOrigins []string
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory (highest priority for MCP servers)
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory (useful for development/go run)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	// 3. Resolve Data Paths
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		if exeDir != "" {
			dataPath = exeDir
		} else {
			dataPath = "."
		}
	}

	// Log files live under LOGS_FOLDER, set up by logging.Init before config loads.
	scenarioDir := filepath.Join(dataPath, "scenarios")

	cfg := &AppConfig{
		DataPath:            dataPath,
		ScenarioDir:         scenarioDir,
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
		Simulation: SimulationConfig{
			DefaultTrials:     getEnvInt("DEFAULT_TRIALS", simulation.DefaultTrials),
			DefaultSeed:       int64(getEnvInt("DEFAULT_SEED", int(simulation.DefaultSeed))),
			AttributionTrials: getEnvInt("ATTRIBUTION_TRIALS", simulation.DefaultAttributionTrials),
			Workers:           getEnvInt("SIM_WORKERS", runtime.GOMAXPROCS(0)),
			MaxTrials:         getEnvInt("MAX_TRIALS", 200000),
		},
		HTTP: HTTPConfig{
			Addr:        getEnv("HTTP_ADDR", ":8080"),
			Env:         getEnv("API_ENV", "development"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		},
	}

	if cfg.Simulation.MaxTrials > simulation.MaxTrials {
		cfg.Simulation.MaxTrials = simulation.MaxTrials
	}

	return cfg, nil
}

// ApplyRequestDefaults fills the trial count and seed from configuration and
// caps the trial count.
func (c *AppConfig) ApplyRequestDefaults(req *simulation.Request) {
	if req.Trials == 0 {
		req.Trials = c.Simulation.DefaultTrials
	}
	if req.Seed == 0 {
		req.Seed = c.Simulation.DefaultSeed
	}
	if c.Simulation.MaxTrials > 0 && req.Trials > c.Simulation.MaxTrials {
		log.Warn().Int("requested", req.Trials).Int("max", c.Simulation.MaxTrials).Msg("Trial count capped")
		req.Trials = c.Simulation.MaxTrials
	}
}

// ResolveScenario turns a relative scenario path into one under ScenarioDir.
func (c *AppConfig) ResolveScenario(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(c.ScenarioDir, path)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer configuration value")
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
