package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/memorylane/internal/config"
	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// newTestEnv opens a migrated SQLite store in a temp dir behind a fresh
// coordinator.
func newTestEnv(t *testing.T) *env {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "memorylane.db")
	store, err := storage.OpenSQLite(dbPath, "WAL")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := newEnv(config.DefaultConfig(), store, zerolog.Nop())
	e.dbPath = dbPath
	require.NoError(t, e.coord.Initialize(context.Background()))
	return e
}

// seed saves one record with explicit fields.
func seed(t *testing.T, e *env, id string, typ storage.ContentType, title, content, category, ts string, tags ...string) {
	t.Helper()
	if tags == nil {
		tags = []string{}
	}
	_, err := e.coord.Save(context.Background(), memory.SaveRequest{
		ID:        id,
		Type:      typ,
		Content:   content,
		URL:       "https://example.com/" + id,
		Title:     title,
		Timestamp: ts,
		Tags:      tags,
		Category:  category,
	})
	require.NoError(t, err)
}

// writeTestConfig writes a minimal config file and returns the global
// flags pointing at it and at a temp database.
func writeTestConfig(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  path: "+dir+"\nlogging:\n  level: error\n"), 0644))
	return []string{"--config", cfgPath, "--db-path", filepath.Join(dir, "memorylane.db")}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 60))
	for x := 0; x < 80; x++ {
		for y := 0; y < 60; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 4), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngDataURL(t *testing.T) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
}
