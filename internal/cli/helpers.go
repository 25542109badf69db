package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/memorylane/internal/config"
	"github.com/runnerr0/memorylane/internal/logger"
	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// env is what a command runs against: the loaded config and a ready
// coordinator over the configured store.
type env struct {
	cfg    *config.Config
	store  storage.Store
	coord  *memory.Coordinator
	dbPath string
	log    zerolog.Logger
}

func (e *env) Close() error {
	return e.store.Close()
}

// loadConfig reads --config when given, else the default config file,
// creating it on first use.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		cfg, err := config.Load(globals.Config)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger: console output on stderr, debug when
// --verbose is set.
func newLogger(globals *GlobalFlags, cfg *config.Config) (zerolog.Logger, error) {
	level := cfg.Logging.Level
	if globals != nil && globals.Verbose {
		level = "debug"
	}
	return logger.New("memorylane", logger.Options{Level: level, Console: true, Out: os.Stderr})
}

// openEnv loads config, opens the SQLite store and initializes the
// coordinator. Callers must Close the result.
func openEnv(globals *GlobalFlags) (*env, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(globals, cfg)
	if err != nil {
		return nil, err
	}
	return openEnvWith(globals, cfg, log)
}

// openEnvWith opens the store named by --db-path or the config and
// initializes a coordinator logging to log.
func openEnvWith(globals *GlobalFlags, cfg *config.Config, log zerolog.Logger) (*env, error) {
	dbPath := ""
	if globals != nil {
		dbPath = globals.DBPath
	}
	if dbPath == "" {
		var err error
		if dbPath, err = cfg.Storage.DBPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	store, err := storage.OpenSQLite(dbPath, cfg.Storage.JournalMode)
	if err != nil {
		return nil, err
	}
	e := newEnv(cfg, store, log)
	e.dbPath = dbPath
	if err := e.coord.Initialize(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize storage: %w", err)
	}
	return e, nil
}

func newEnv(cfg *config.Config, store storage.Store, log zerolog.Logger) *env {
	coord := memory.New(store,
		memory.WithLogger(log),
		memory.WithThumbnailSize(cfg.Capture.ThumbnailSize),
	)
	return &env{cfg: cfg, store: store, coord: coord, log: log}
}

// withEnv opens the environment, runs fn and closes it.
func withEnv(globals *GlobalFlags, fn func(*env) error) error {
	e, err := openEnv(globals)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}

func jsonOutput(globals *GlobalFlags) bool {
	return globals != nil && globals.JSON
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 's':
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use w, d, h, m or s suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int with comma separators.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// readText returns inline text, else the joined args, else the file
// contents.
func readText(inline string, args []string, file string) (string, error) {
	if inline != "" {
		return inline, nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}
	return "", nil
}

// shortTime renders a stored timestamp for humans, or returns it as-is
// when it does not parse.
func shortTime(ts string) string {
	t, err := storage.ParseTimestamp(ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}
