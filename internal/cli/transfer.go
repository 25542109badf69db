package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/memorylane/internal/memory"
)

// yamlExport mirrors memory.Export with decoded collections so YAML output
// is readable rather than base64 blobs.
type yamlExport struct {
	ExportDate string         `yaml:"exportDate"`
	Version    string         `yaml:"version"`
	Data       map[string]any `yaml:"data"`
}

// Execute implements the go-flags Commander interface for ExportCommand.
func (c *ExportCommand) Execute(args []string) error {
	if c.Format != "json" && c.Format != "yaml" {
		return fmt.Errorf("invalid --format %q (use json or yaml)", c.Format)
	}
	return withEnv(c.globals, func(e *env) error {
		if c.Output == "" || c.Output == "-" {
			return c.executeWith(e, os.Stdout)
		}
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("create %s: %w", c.Output, err)
		}
		if err := c.executeWith(e, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported to %s\n", c.Output)
		return nil
	})
}

// executeWith writes the export to w (for testing).
func (c *ExportCommand) executeWith(e *env, w io.Writer) error {
	exp, err := e.coord.Export(context.Background())
	if err != nil {
		return err
	}
	if c.Format == "yaml" {
		return writeYAMLExport(w, exp)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}

func writeYAMLExport(w io.Writer, exp *memory.Export) error {
	out := yamlExport{ExportDate: exp.ExportDate, Version: exp.Version, Data: map[string]any{}}
	for k, raw := range exp.Data {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		out.Data[k] = v
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	path := c.Input
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("an export file is required")
	}
	exp, err := readExport(path, c.Format)
	if err != nil {
		return err
	}
	return withEnv(c.globals, func(e *env) error {
		return c.executeWith(e, exp)
	})
}

// executeWith imports exp into a provided environment (for testing).
func (c *ImportCommand) executeWith(e *env, exp *memory.Export) error {
	if err := e.coord.Import(context.Background(), exp); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if jsonOutput(c.globals) {
		return printJSON(map[string]any{"imported": true, "keys": len(exp.Data)})
	}
	fmt.Printf("Imported %d collections (export from %s)\n", len(exp.Data), exp.ExportDate)
	return nil
}

// readExport decodes a JSON or YAML export. Without an explicit format the
// file extension decides, defaulting to JSON.
func readExport(path, format string) (*memory.Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			format = "yaml"
		default:
			format = "json"
		}
	}
	return decodeExport(data, format)
}

func decodeExport(data []byte, format string) (*memory.Export, error) {
	switch format {
	case "json":
	case "yaml":
		var doc yamlExport
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml export: %w", err)
		}
		converted, err := json.Marshal(map[string]any{
			"exportDate": doc.ExportDate,
			"version":    doc.Version,
			"data":       doc.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("convert yaml export: %w", err)
		}
		data = converted
	default:
		return nil, fmt.Errorf("invalid --format %q (use json or yaml)", format)
	}

	var exp memory.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return &exp, nil
}
