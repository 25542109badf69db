package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/memorylane/internal/storage"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}
	if err := c.confirm(); err != nil {
		return err
	}
	return withEnv(c.globals, c.executeWith)
}

func (c *PurgeCommand) confirm() error {
	if c.Force {
		return nil
	}
	fmt.Println("⚠ WARNING: This will permanently delete ALL memorylane data.")
	fmt.Println("  - All saved pages, selections and notes")
	fmt.Println("  - All screenshots and thumbnails")
	fmt.Println("  - All analysis results")
	fmt.Println()
	fmt.Println("This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.stdin != nil {
		in = c.stdin
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWith clears everything in a provided environment (for testing).
func (c *PurgeCommand) executeWith(e *env) error {
	at, err := e.coord.ClearAll(context.Background())
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]any{
			"purged":    true,
			"message":   "all data deleted",
			"timestamp": storage.FormatTimestamp(at),
		})
	}
	fmt.Println("Purged all data. memorylane is empty.")
	return nil
}
