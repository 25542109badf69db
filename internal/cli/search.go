package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	q, err := c.buildQuery(args, time.Now())
	if err != nil {
		return err
	}
	return withEnv(c.globals, func(e *env) error {
		return c.executeWith(e, q)
	})
}

func (c *SearchCommand) buildQuery(args []string, now time.Time) (memory.SearchQuery, error) {
	q := memory.SearchQuery{
		Query:     strings.Join(args, " "),
		Category:  c.Category,
		Type:      storage.ContentType(c.Type),
		Sentiment: storage.Sentiment(c.Sentiment),
		Tags:      c.Tag,
		Limit:     c.Limit,
	}
	if c.Type != "" && !q.Type.Valid() {
		return q, fmt.Errorf("invalid --type %q", c.Type)
	}
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return q, fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		q.Since = now.Add(-dur)
	}
	if c.Until != "" {
		dur, err := parseDuration(c.Until)
		if err != nil {
			return q, fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
		q.Until = now.Add(-dur)
	}
	return q, nil
}

// executeWith runs the search against a provided environment (for testing).
func (c *SearchCommand) executeWith(e *env, q memory.SearchQuery) error {
	results, err := e.coord.Search(context.Background(), q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(jsonSearchOutput{Count: len(results), Query: q.Query, Results: results})
	}
	printResults(q.Query, results)
	return nil
}

type jsonSearchOutput struct {
	Count   int                     `json:"count"`
	Query   string                  `json:"query"`
	Results []storage.ContentRecord `json:"results"`
}

func printResults(query string, results []storage.ContentRecord) {
	if len(results) == 0 {
		if query != "" {
			fmt.Printf("No results found for %q\n", query)
		} else {
			fmt.Println("No results found")
		}
		return
	}

	resultWord := "results"
	if len(results) == 1 {
		resultWord = "result"
	}
	if query != "" {
		fmt.Printf("Found %d %s for %q\n\n", len(results), resultWord, query)
	} else {
		fmt.Printf("Found %d %s\n\n", len(results), resultWord)
	}

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%d. %s  [%s]\n", i+1, title, r.ID)
		if r.URL != "" {
			fmt.Printf("   %s\n", r.URL)
		}
		fmt.Printf("   %s · %s · %s\n", shortTime(r.Timestamp), r.Type, r.Category)
		if r.Summary != "" {
			fmt.Printf("   %s\n", r.Summary)
		}
		if i < len(results)-1 {
			fmt.Println()
		}
	}
}
