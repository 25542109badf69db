package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/memorylane/internal/storage"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	return withEnv(c.globals, func(e *env) error {
		return c.executeWith(e, time.Now())
	})
}

// retention resolves --older-than, falling back to the configured days.
func (c *PruneCommand) retention(days int) (time.Duration, error) {
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return 0, fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		return d, nil
	}
	if days <= 0 {
		return 0, fmt.Errorf("no retention period configured: set retention.days or pass --older-than")
	}
	return time.Duration(days) * 24 * time.Hour, nil
}

// executeWith prunes against a provided environment (for testing).
func (c *PruneCommand) executeWith(e *env, now time.Time) error {
	keep, err := c.retention(e.cfg.Retention.Days)
	if err != nil {
		return err
	}
	cutoff := now.Add(-keep)
	ctx := context.Background()

	var n int
	if c.DryRun {
		all, err := e.coord.GetSavedContent(ctx)
		if err != nil {
			return err
		}
		for _, rec := range all {
			if ts, err := storage.ParseTimestamp(rec.Timestamp); err == nil && ts.Before(cutoff) {
				n++
			}
		}
	} else if n, err = e.coord.PruneOlderThan(ctx, cutoff); err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]any{
			"dry_run": c.DryRun,
			"cutoff":  storage.FormatTimestamp(cutoff),
			"pruned":  n,
		})
	}
	verb := "Pruned"
	if c.DryRun {
		verb = "Would prune"
	}
	fmt.Printf("%s %d items older than %s\n", verb, n, formatDurationHuman(keep))
	return nil
}
