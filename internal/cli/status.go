package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version       string               `json:"version"`
	DatabasePath  string               `json:"database_path,omitempty"`
	DatabaseBytes int64                `json:"database_size_bytes"`
	Storage       storage.StorageStats `json:"storage"`
	Content       memory.ContentStats  `json:"content"`
	RetentionDays int                  `json:"retention_days"`
	RecentAudit   []storage.AuditEntry `json:"recent_audit,omitempty"`
	DaemonRunning bool                 `json:"daemon_running"`
}

const recentAuditEntries = 5

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withEnv(c.globals, func(e *env) error {
		return c.executeWith(e, checkDaemon("http://"+e.cfg.Daemon.Addr()))
	})
}

// executeWith runs status against a provided environment (for testing).
func (c *StatusCommand) executeWith(e *env, daemonRunning bool) error {
	ctx := context.Background()

	stats, err := e.coord.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}
	content, err := e.coord.ContentStats(ctx)
	if err != nil {
		return fmt.Errorf("content stats: %w", err)
	}

	out := statusJSON{
		Version:       c.version,
		DatabasePath:  e.dbPath,
		Storage:       stats,
		Content:       content,
		RetentionDays: e.cfg.Retention.Days,
		DaemonRunning: daemonRunning,
	}
	if e.dbPath != "" {
		if info, err := os.Stat(e.dbPath); err == nil {
			out.DatabaseBytes = info.Size()
		}
	}
	if sq, ok := e.store.(*storage.SQLiteStore); ok {
		entries, err := sq.RecentAudit(ctx, recentAuditEntries)
		if err != nil {
			return fmt.Errorf("read audit log: %w", err)
		}
		out.RecentAudit = entries
	}

	if jsonOutput(c.globals) {
		return printJSON(out)
	}
	c.printHuman(out)
	return nil
}

func (c *StatusCommand) printHuman(s statusJSON) {
	fmt.Println("memorylane status")
	fmt.Println("=================")
	fmt.Printf("Version:       %s\n", s.Version)
	if s.DatabasePath != "" {
		fmt.Printf("Database:      %s (%s)\n", s.DatabasePath, formatBytes(s.DatabaseBytes))
	}
	fmt.Printf("Items:         %s\n", formatNumber(s.Storage.ItemCount))
	fmt.Printf("Stored data:   %s\n", formatBytes(s.Storage.BytesUsed))
	if s.Storage.LastUpdated != "" {
		fmt.Printf("Last updated:  %s\n", shortTime(s.Storage.LastUpdated))
	}
	if s.Content.TotalItems > 0 {
		fmt.Printf("Oldest:        %s\n", shortTime(s.Content.OldestItem))
		fmt.Printf("Newest:        %s\n", shortTime(s.Content.NewestItem))
	}
	if s.RetentionDays > 0 {
		fmt.Printf("Retention:     %s\n", formatDurationHuman(time.Duration(s.RetentionDays)*24*time.Hour))
	} else {
		fmt.Println("Retention:     keep forever")
	}

	printCounts("By Type:", s.Content.ByType)
	printCounts("By Category:", s.Content.ByCategory)

	if len(s.Content.TopTags) > 0 {
		fmt.Println()
		fmt.Println("Top Tags:")
		for _, t := range s.Content.TopTags {
			fmt.Printf("  %-20s %s\n", t.Tag, formatNumber(t.Count))
		}
	}

	if len(s.RecentAudit) > 0 {
		fmt.Println()
		fmt.Println("Recent Activity:")
		for _, a := range s.RecentAudit {
			fmt.Printf("  %s  %-8s %s\n", shortTime(a.TS), a.Action, a.Detail)
		}
	}

	fmt.Println()
	if s.DaemonRunning {
		fmt.Println("Daemon:        running")
	} else {
		fmt.Println("Daemon:        not running")
	}
}

// printCounts prints a count map sorted by count, then name.
func printCounts(heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	fmt.Println()
	fmt.Println(heading)
	for _, name := range names {
		fmt.Printf("  %-20s %s\n", name, formatNumber(counts[name]))
	}
}

// checkDaemon reports whether the daemon answers its health endpoint
// within one second.
func checkDaemon(baseURL string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
