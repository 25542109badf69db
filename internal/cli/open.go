package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for open command")
	}
	return withEnv(c.globals, c.executeWith)
}

// executeWith prints the item against a provided environment (for testing).
func (c *OpenCommand) executeWith(e *env) error {
	ctx := context.Background()

	rec, err := e.coord.Get(ctx, c.ID)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return fmt.Errorf("memory not found: %s", c.ID)
		}
		return err
	}

	format := c.Format
	if jsonOutput(c.globals) {
		format = "json"
	}

	switch format {
	case "content":
		fmt.Println(rec.Content)
	case "summary":
		fmt.Println(rec.Summary)
	case "screenshot", "thumbnail":
		get := e.coord.Screenshot
		if format == "thumbnail" {
			get = e.coord.Thumbnail
		}
		img, err := get(ctx, c.ID)
		if err != nil {
			return err
		}
		if img == "" {
			return fmt.Errorf("no %s stored for %s", format, c.ID)
		}
		fmt.Println(img)
	case "json":
		a, err := e.coord.Analysis(ctx, c.ID)
		if err != nil && !errors.Is(err, memory.ErrNotFound) {
			return err
		}
		return printJSON(struct {
			Memory   *storage.ContentRecord  `json:"memory"`
			Analysis *storage.AnalysisRecord `json:"analysis,omitempty"`
		}{rec, a})
	case "md":
		outputMarkdown(rec)
	case "full":
		a, err := e.coord.Analysis(ctx, c.ID)
		if err != nil && !errors.Is(err, memory.ErrNotFound) {
			return err
		}
		outputFull(rec, a)
	default:
		return fmt.Errorf("unknown --format %q", c.Format)
	}
	return nil
}

func outputFull(rec *storage.ContentRecord, a *storage.AnalysisRecord) {
	fmt.Println(rec.ID)
	fmt.Printf("Title:      %s\n", rec.Title)
	fmt.Printf("URL:        %s\n", rec.URL)
	fmt.Printf("Type:       %s\n", rec.Type)
	fmt.Printf("Category:   %s\n", rec.Category)
	fmt.Printf("Captured:   %s\n", shortTime(rec.Timestamp))
	fmt.Printf("Tags:       %s\n", strings.Join(rec.Tags, ", "))
	if a != nil {
		fmt.Printf("Sentiment:  %s\n", a.Sentiment)
		fmt.Printf("Importance: %d/10\n", a.ImportanceScore)
		fmt.Printf("Learning:   %d/10\n", a.LearningValue)
		fmt.Printf("Keywords:   %s\n", strings.Join(a.Keywords, ", "))
	}
	fmt.Println()
	fmt.Println("--- Summary ---")
	fmt.Println(rec.Summary)
	fmt.Println()
	fmt.Println("--- Content ---")
	fmt.Println(rec.Content)
	if rec.Context != "" {
		fmt.Println()
		fmt.Println("--- Context ---")
		fmt.Println(rec.Context)
	}
}

func outputMarkdown(rec *storage.ContentRecord) {
	fmt.Println("---")
	fmt.Printf("id: %s\n", rec.ID)
	fmt.Printf("title: %s\n", rec.Title)
	fmt.Printf("url: %s\n", rec.URL)
	fmt.Printf("type: %s\n", rec.Type)
	fmt.Printf("category: %s\n", rec.Category)
	fmt.Printf("captured: %s\n", rec.Timestamp)
	fmt.Printf("tags: [%s]\n", strings.Join(rec.Tags, ", "))
	fmt.Println("---")
	fmt.Println()
	if rec.Title != "" {
		fmt.Printf("# %s\n\n", rec.Title)
	}
	if rec.Summary != "" {
		fmt.Printf("> %s\n\n", rec.Summary)
	}
	fmt.Println(rec.Content)
}
