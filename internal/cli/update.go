package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// Execute implements the go-flags Commander interface for UpdateCommand.
func (c *UpdateCommand) Execute(args []string) error {
	fields, err := c.fields()
	if err != nil {
		return err
	}
	return withEnv(c.globals, func(e *env) error {
		return c.executeWith(e, fields)
	})
}

// fields collects the flag values into a field set. --set values are raw
// JSON; a value that does not parse is taken as a string.
func (c *UpdateCommand) fields() (storage.Fields, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("--id is required for update command")
	}
	fields := storage.Fields{}
	put := func(name string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fields[name] = raw
		return nil
	}

	if c.Title != "" {
		if err := put("title", c.Title); err != nil {
			return nil, err
		}
	}
	if c.Content != "" {
		if err := put("content", c.Content); err != nil {
			return nil, err
		}
	}
	if c.Category != "" {
		if err := put("category", c.Category); err != nil {
			return nil, err
		}
	}
	if len(c.Tag) > 0 {
		if err := put("tags", c.Tag); err != nil {
			return nil, err
		}
	}
	for _, kv := range c.Set {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q (use field=value)", kv)
		}
		if json.Valid([]byte(value)) {
			fields[name] = json.RawMessage(value)
		} else if err := put(name, value); err != nil {
			return nil, err
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("nothing to update")
	}
	return fields, nil
}

// executeWith applies the update against a provided environment (for testing).
func (c *UpdateCommand) executeWith(e *env, fields storage.Fields) error {
	rec, err := e.coord.Update(context.Background(), c.ID, fields)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return fmt.Errorf("memory not found: %s", c.ID)
		}
		return fmt.Errorf("update: %w", err)
	}
	if jsonOutput(c.globals) {
		return printJSON(rec)
	}
	fmt.Printf("Updated %s (%d fields)\n", rec.ID, len(fields))
	return nil
}
