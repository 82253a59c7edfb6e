package main

import (
	"fmt"
	"os"

	"liquidity-mcs/cmd/liquidity-mcs/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
