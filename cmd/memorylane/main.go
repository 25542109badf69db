// Command memorylane captures, analyzes and searches browsing memories.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/runnerr0/memorylane/internal/cli"
)

var version = "dev"

func main() {
	// A .env in the working directory may carry MEMORYLANE_* overrides.
	_ = godotenv.Load()

	if err := cli.Run(version); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
