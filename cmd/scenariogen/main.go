package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"liquidity-mcs/cmd/scenariogen/engine"
	"liquidity-mcs/internal/scenario"
)

func main() {
	profile := flag.String("profile", "mild", "Profile to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Demand noise: uniform, weibull")
	months := flag.Int("months", 12, "Horizon length in months")
	start := flag.String("start", "2025-01", "First month (YYYY-MM)")
	seed := flag.Uint64("seed", 1, "Generator seed")
	out := flag.String("out", "", "Output file (.yaml, .yml or .json); defaults to ./scenarios/<profile>.yaml")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Profile:      *profile,
		Distribution: *distribution,
		Months:       *months,
		StartMonth:   *start,
		Seed:         *seed,
	}
	path := *out
	if path == "" {
		path = filepath.Join("scenarios", cfg.Profile+".yaml")
	}

	fmt.Printf("Generating profile '%s' (Distribution: %s, Months: %d) to %s...\n", cfg.Profile, cfg.Distribution, cfg.Months, path)

	req, err := engine.Generate(cfg)
	if err != nil {
		fmt.Printf("Failed to generate scenario: %v\n", err)
		os.Exit(1)
	}
	if err := scenario.Save(path, req); err != nil {
		fmt.Printf("Failed to save scenario: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
