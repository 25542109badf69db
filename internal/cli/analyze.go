package cli

import (
	"fmt"
	"strings"

	"github.com/runnerr0/memorylane/internal/analysis"
	"github.com/runnerr0/memorylane/internal/storage"
)

// Execute implements the go-flags Commander interface for AnalyzeCommand.
// Nothing is stored, so no database is opened.
func (c *AnalyzeCommand) Execute(args []string) error {
	text, err := readText("", args, c.File)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text is required: pass --file or arguments")
	}
	typ := storage.ContentType(c.Type)
	if !typ.Valid() {
		return fmt.Errorf("invalid --type %q", c.Type)
	}

	tags := c.Tag
	if tags == nil {
		tags = []string{}
	}
	item := analysis.Item{
		Type:     typ,
		Content:  text,
		URL:      c.URL,
		Title:    c.Title,
		Tags:     tags,
		Category: analysis.CategorizeContent(text),
	}
	rec := analysis.NewAnalyzer().Analyze(item)

	if jsonOutput(c.globals) {
		return printJSON(struct {
			Category string `json:"category"`
			storage.AnalysisRecord
		}{item.Category, rec})
	}

	fmt.Printf("Category:   %s\n", item.Category)
	fmt.Printf("Sentiment:  %s\n", rec.Sentiment)
	fmt.Printf("Importance: %d/10\n", rec.ImportanceScore)
	fmt.Printf("Learning:   %d/10\n", rec.LearningValue)
	fmt.Printf("Keywords:   %s\n", strings.Join(rec.Keywords, ", "))
	fmt.Printf("Tags:       %s\n", strings.Join(rec.Tags, ", "))
	e := rec.EmotionalProfile
	fmt.Printf("Emotions:   joy=%d sadness=%d anger=%d fear=%d surprise=%d\n", e.Joy, e.Sadness, e.Anger, e.Fear, e.Surprise)
	fmt.Println()
	fmt.Println("--- Summary ---")
	fmt.Println(rec.Summary)
	return nil
}
