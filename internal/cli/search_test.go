package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/memorylane/internal/storage"
)

func seedSearch(t *testing.T) *env {
	t.Helper()
	e := newTestEnv(t)
	seed(t, e, "old", storage.TypeNote, "Rust ownership", "Borrowing rules in Rust", "technology", "2024-01-01T00:00:00.000Z", "rust")
	seed(t, e, "mid", storage.TypePage, "Go generics", "Type parameters in Go", "technology", "2024-05-01T00:00:00.000Z", "go")
	seed(t, e, "new", storage.TypeSelection, "Market update", "Sales grew this quarter", "business", "2024-06-01T00:00:00.000Z", "finance")
	return e
}

func runSearch(t *testing.T, e *env, cmd *SearchCommand, args []string, now time.Time) jsonSearchOutput {
	t.Helper()
	cmd.globals = &GlobalFlags{JSON: true}
	q, err := cmd.buildQuery(args, now)
	require.NoError(t, err)
	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWith(e, q))
	})
	var out jsonSearchOutput
	require.NoError(t, json.Unmarshal([]byte(output), &out))
	return out
}

func ids(records []storage.ContentRecord) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestSearch_Filters(t *testing.T) {
	e := seedSearch(t)
	now := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cmd  SearchCommand
		args []string
		want []string
	}{
		{"all newest first", SearchCommand{}, nil, []string{"new", "mid", "old"}},
		{"text", SearchCommand{}, []string{"rust"}, []string{"old"}},
		{"category", SearchCommand{Category: "technology"}, nil, []string{"mid", "old"}},
		{"type", SearchCommand{Type: "page"}, nil, []string{"mid"}},
		{"tag", SearchCommand{Tag: []string{"go", "finance"}}, nil, []string{"new", "mid"}},
		{"since", SearchCommand{Since: "60d"}, nil, []string{"new", "mid"}},
		{"until", SearchCommand{Until: "10d"}, nil, []string{"mid", "old"}},
		{"limit", SearchCommand{Limit: 1}, nil, []string{"new"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd
			out := runSearch(t, e, &cmd, tt.args, now)
			assert.Equal(t, tt.want, ids(out.Results))
			assert.Equal(t, len(tt.want), out.Count)
		})
	}
}

func TestSearch_Human(t *testing.T) {
	e := seedSearch(t)
	cmd := &SearchCommand{globals: &GlobalFlags{}}
	q, err := cmd.buildQuery([]string{"go"}, time.Now())
	require.NoError(t, err)

	output := captureOutput(t, func() {
		require.NoError(t, cmd.executeWith(e, q))
	})
	assert.Contains(t, output, `Found 1 result for "go"`)
	assert.Contains(t, output, "1. Go generics  [mid]")
	assert.Contains(t, output, "https://example.com/mid")

	q.Query = "nothing matches this"
	output = captureOutput(t, func() {
		require.NoError(t, cmd.executeWith(e, q))
	})
	assert.Contains(t, output, `No results found for "nothing matches this"`)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"2w", 14 * 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"24h", 24 * time.Hour},
		{"15m", 15 * time.Minute},
		{"30s", 30 * time.Second},
	}
	for _, tt := range tests {
		d, err := parseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, d)
	}
	for _, bad := range []string{"", "d", "x7d", "7y", "-1d"} {
		_, err := parseDuration(bad)
		assert.Error(t, err, bad)
	}
}
