package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/memorylane/internal/config"
	"github.com/runnerr0/memorylane/internal/daemon"
	"github.com/runnerr0/memorylane/internal/logger"
	"github.com/runnerr0/memorylane/internal/memory"
)

const retentionInterval = 24 * time.Hour

// Execute implements the go-flags Commander interface for IngestCommand.
// It serves until SIGINT or SIGTERM.
func (c *IngestCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	dir, err := cfg.Storage.Dir()
	if err != nil {
		return err
	}
	logFile, err := logger.OpenFile(dir, cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	level := cfg.Logging.Level
	if c.globals != nil && c.globals.Verbose {
		level = "debug"
	}
	log, err := logger.New("memorylane-daemon", logger.Options{
		Level:   level,
		Console: cfg.Logging.Console,
		Out:     logger.Tee(os.Stderr, logFile),
	})
	if err != nil {
		return err
	}

	e, err := openEnvWith(c.globals, cfg, log)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.serve(ctx, e)
}

func (c *IngestCommand) applyOverrides(cfg *config.Config) {
	if c.Host != "" {
		cfg.Daemon.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Daemon.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}
}

// serve runs the daemon and the retention loop until ctx is done.
func (c *IngestCommand) serve(ctx context.Context, e *env) error {
	if days := e.cfg.Retention.Days; days > 0 {
		go runRetention(ctx, e.coord, time.Duration(days)*24*time.Hour, retentionInterval, e.log)
	}

	srv := daemon.New(e.coord, daemon.Options{
		RequestTimeout: e.cfg.Daemon.RequestTimeout(),
		MaxRequestSize: e.cfg.Daemon.MaxRequestSize,
		Policy:         e.cfg.Capture.Policy(),
		Logger:         e.log,
		Version:        c.version,
	})
	e.log.Info().
		Str("addr", e.cfg.Daemon.Addr()).
		Str("database", e.dbPath).
		Int("retention_days", e.cfg.Retention.Days).
		Bool("auto_capture", e.cfg.Capture.AutoCapture).
		Msg("memorylane daemon starting")
	if err := srv.ListenAndServe(ctx, e.cfg.Daemon.Addr()); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	return nil
}

// runRetention prunes content older than keep now and then every interval.
func runRetention(ctx context.Context, coord *memory.Coordinator, keep, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := coord.PruneOlderThan(ctx, time.Now().Add(-keep))
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("retention prune failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Msg("retention prune")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
