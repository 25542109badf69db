package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/memorylane/internal/memory"
)

// Execute implements the go-flags Commander interface for DeleteCommand.
func (c *DeleteCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for delete command")
	}
	return withEnv(c.globals, c.executeWith)
}

// executeWith deletes against a provided environment (for testing).
func (c *DeleteCommand) executeWith(e *env) error {
	if err := e.coord.Delete(context.Background(), c.ID); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return fmt.Errorf("memory not found: %s", c.ID)
		}
		return fmt.Errorf("delete: %w", err)
	}
	if jsonOutput(c.globals) {
		return printJSON(map[string]any{"deleted": true, "id": c.ID})
	}
	fmt.Printf("Deleted %s\n", c.ID)
	return nil
}
