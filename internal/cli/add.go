package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/memorylane/internal/capture"
	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if err := c.validate(args); err != nil {
		return err
	}
	return withEnv(c.globals, func(e *env) error {
		return c.executeWith(e, args, time.Now())
	})
}

func (c *AddCommand) validate(args []string) error {
	switch storage.ContentType(c.Type) {
	case storage.TypeNote, storage.TypeSelection:
		if c.Text == "" && len(args) == 0 && c.File == "" {
			return fmt.Errorf("text is required: pass --text, --file or arguments")
		}
	case storage.TypePage:
		if c.File == "" {
			return fmt.Errorf("--file with the page HTML is required for pages")
		}
	default:
		return fmt.Errorf("invalid --type %q (use note, selection or page)", c.Type)
	}
	if c.URL != "" {
		parsed, err := url.ParseRequestURI(c.URL)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("invalid URL: %s", c.URL)
		}
	}
	return nil
}

// executeWith builds and saves the request against a provided environment
// (for testing).
func (c *AddCommand) executeWith(e *env, args []string, now time.Time) error {
	req, err := c.buildRequest(args, now)
	if err != nil {
		return err
	}
	if c.Screenshot != "" {
		if req.Screenshot, err = imageDataURL(c.Screenshot); err != nil {
			return err
		}
	}

	id, err := e.coord.Save(context.Background(), req)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	rec, err := e.coord.Get(context.Background(), id)
	if err != nil {
		return err
	}

	if jsonOutput(c.globals) {
		return printJSON(rec)
	}
	fmt.Printf("Saved %s %s (%s)\n", rec.Type, rec.ID, shortTime(rec.Timestamp))
	if rec.Title != "" {
		fmt.Printf("  Title:     %s\n", rec.Title)
	}
	fmt.Printf("  Category:  %s\n", rec.Category)
	fmt.Printf("  Sentiment: %s\n", rec.Sentiment)
	fmt.Printf("  Tags:      %s\n", strings.Join(rec.Tags, ", "))
	fmt.Printf("  Summary:   %s\n", rec.Summary)
	return nil
}

func (c *AddCommand) buildRequest(args []string, now time.Time) (memory.SaveRequest, error) {
	id := memory.NewID(now)

	if storage.ContentType(c.Type) == storage.TypePage {
		f, err := os.Open(c.File)
		if err != nil {
			return memory.SaveRequest{}, fmt.Errorf("open page: %w", err)
		}
		defer f.Close()
		page, err := capture.ExtractPage(f, c.URL)
		if err != nil {
			return memory.SaveRequest{}, err
		}
		if c.Title != "" {
			page.Title = c.Title
		}
		return page.SaveRequest(id, now, false), nil
	}

	text, err := readText(c.Text, args, c.File)
	if err != nil {
		return memory.SaveRequest{}, err
	}
	if storage.ContentType(c.Type) == storage.TypeSelection {
		return capture.Selection(id, text, c.Context, c.URL, c.Title, now), nil
	}
	req := capture.Note(id, text, c.Title, c.Tag, now)
	req.URL = c.URL
	return req, nil
}

// imageDataURL reads an image file as a base64 data URL.
func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read screenshot: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("screenshot %s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
