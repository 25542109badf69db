// Package memory owns the persisted collections and the id-correlated
// save, update and delete protocol that keeps them consistent.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/runnerr0/memorylane/internal/analysis"
	"github.com/runnerr0/memorylane/internal/storage"
)

// Coordinator is the only writer of the savedContent, screenshots,
// thumbnails, aiAnalysis, activeTabs and storageStats collections.
//
// Mutations are serialized by a single mutex, so concurrent saves and
// deletes never lose each other's writes. Reads are not locked.
type Coordinator struct {
	store         storage.Store
	analyzer      *analysis.Analyzer
	log           zerolog.Logger
	now           func() time.Time
	thumbnailSize int

	mu sync.Mutex
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithClock replaces time.Now for timestamps and analysis records.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithThumbnailSize sets the thumbnail edge length in pixels.
func WithThumbnailSize(px int) Option {
	return func(c *Coordinator) {
		if px > 0 {
			c.thumbnailSize = px
		}
	}
}

// New returns a Coordinator writing to store.
func New(store storage.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:         store,
		log:           zerolog.Nop(),
		now:           time.Now,
		thumbnailSize: DefaultThumbnailSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.analyzer = &analysis.Analyzer{Now: c.now}
	return c
}

// Store returns the underlying store.
func (c *Coordinator) Store() storage.Store { return c.store }

// Initialize writes an empty default for every collection that is missing.
func (c *Coordinator) Initialize(ctx context.Context) (err error) {
	defer recoverInto(&err)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializeLocked(ctx)
}

func (c *Coordinator) initializeLocked(ctx context.Context) error {
	existing, err := c.store.Get(ctx, storage.AllKeys...)
	if err != nil {
		return fmt.Errorf("read collections: %w", err)
	}

	defaults := map[string]any{
		storage.KeySavedContent: []storage.ContentRecord{},
		storage.KeyScreenshots:  map[string]string{},
		storage.KeyThumbnails:   map[string]string{},
		storage.KeyAIAnalysis:   map[string]storage.AnalysisRecord{},
		storage.KeyActiveTabs:   map[string]storage.ActiveTab{},
		storage.KeyStorageStats: storage.StorageStats{LastUpdated: storage.FormatTimestamp(c.now())},
	}
	for k := range existing {
		delete(defaults, k)
	}
	if len(defaults) == 0 {
		return nil
	}

	items, err := storage.Encode(defaults)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, items); err != nil {
		return fmt.Errorf("write defaults: %w", err)
	}
	c.log.Debug().Int("collections", len(items)).Msg("initialized storage defaults")
	return nil
}

// snapshot is a decoded view of some collections. Collections that were not
// requested or are absent in the store decode to empty values.
type snapshot struct {
	content     []storage.ContentRecord
	screenshots map[string]string
	thumbnails  map[string]string
	analysis    map[string]storage.AnalysisRecord
	tabs        map[string]storage.ActiveTab
	stats       *storage.StorageStats
}

func (c *Coordinator) read(ctx context.Context, keys ...string) (*snapshot, error) {
	raw, err := c.store.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("read collections: %w", err)
	}

	s := &snapshot{
		content:     []storage.ContentRecord{},
		screenshots: map[string]string{},
		thumbnails:  map[string]string{},
		analysis:    map[string]storage.AnalysisRecord{},
		tabs:        map[string]storage.ActiveTab{},
	}
	targets := map[string]any{
		storage.KeySavedContent: &s.content,
		storage.KeyScreenshots:  &s.screenshots,
		storage.KeyThumbnails:   &s.thumbnails,
		storage.KeyAIAnalysis:   &s.analysis,
		storage.KeyActiveTabs:   &s.tabs,
	}
	for key, target := range targets {
		v, ok := raw[key]
		if !ok || isNull(v) {
			continue
		}
		if err := json.Unmarshal(v, target); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
	}
	if v, ok := raw[storage.KeyStorageStats]; ok && !isNull(v) {
		var st storage.StorageStats
		if err := json.Unmarshal(v, &st); err != nil {
			return nil, fmt.Errorf("decode %s: %w", storage.KeyStorageStats, err)
		}
		s.stats = &st
	}
	return s, nil
}

// encode marshals the named collections of s for a single Store.Set.
func (s *snapshot) encode(keys ...string) (map[string]json.RawMessage, error) {
	values := make(map[string]any, len(keys))
	for _, k := range keys {
		switch k {
		case storage.KeySavedContent:
			values[k] = s.content
		case storage.KeyScreenshots:
			values[k] = s.screenshots
		case storage.KeyThumbnails:
			values[k] = s.thumbnails
		case storage.KeyAIAnalysis:
			values[k] = s.analysis
		case storage.KeyActiveTabs:
			values[k] = s.tabs
		default:
			return nil, fmt.Errorf("unknown collection %q", k)
		}
	}
	return storage.Encode(values)
}

func (s *snapshot) indexOf(id string) int {
	for i := range s.content {
		if s.content[i].ID == id {
			return i
		}
	}
	return -1
}

// remove drops the record with id and everything correlated with it.
func (s *snapshot) remove(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.content = append(s.content[:i], s.content[i+1:]...)
	delete(s.screenshots, id)
	delete(s.thumbnails, id)
	delete(s.analysis, id)
	return true
}

var correlatedKeys = []string{
	storage.KeySavedContent,
	storage.KeyScreenshots,
	storage.KeyThumbnails,
	storage.KeyAIAnalysis,
}

// refreshStatsLocked recomputes and persists StorageStats. Callers hold mu.
func (c *Coordinator) refreshStatsLocked(ctx context.Context) (storage.StorageStats, error) {
	stats, err := c.computeStats(ctx, c.now())
	if err != nil {
		return stats, err
	}
	items, err := storage.Encode(map[string]any{storage.KeyStorageStats: stats})
	if err != nil {
		return stats, err
	}
	if err := c.store.Set(ctx, items); err != nil {
		return stats, fmt.Errorf("write stats: %w", err)
	}
	return stats, nil
}

func (c *Coordinator) computeStats(ctx context.Context, at time.Time) (storage.StorageStats, error) {
	bytes, err := c.store.BytesInUse(ctx)
	if err != nil {
		return storage.StorageStats{}, fmt.Errorf("bytes in use: %w", err)
	}
	snap, err := c.read(ctx, storage.KeySavedContent)
	if err != nil {
		return storage.StorageStats{}, err
	}
	return storage.StorageStats{
		BytesUsed:   bytes,
		ItemCount:   len(snap.content),
		LastUpdated: storage.FormatTimestamp(at),
	}, nil
}

// afterMutation refreshes stats, logging rather than failing when the
// refresh itself breaks: the mutation is already persisted.
func (c *Coordinator) afterMutation(ctx context.Context, op string) {
	if _, err := c.refreshStatsLocked(ctx); err != nil {
		c.log.Warn().Err(err).Str("op", op).Msg("failed to refresh storage stats")
	}
}

func (c *Coordinator) audit(ctx context.Context, action, detail string) {
	a, ok := c.store.(storage.Auditor)
	if !ok {
		return
	}
	if err := a.Audit(ctx, action, detail); err != nil {
		c.log.Warn().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}

func isNull(b json.RawMessage) bool {
	return len(b) == 0 || string(b) == "null"
}
