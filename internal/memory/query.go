package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/runnerr0/memorylane/internal/storage"
)

// GetSavedContent returns every record in insertion order.
func (c *Coordinator) GetSavedContent(ctx context.Context) (_ []storage.ContentRecord, err error) {
	defer recoverInto(&err)
	snap, err := c.read(ctx, storage.KeySavedContent)
	if err != nil {
		return nil, err
	}
	return snap.content, nil
}

// Get returns the record with id.
func (c *Coordinator) Get(ctx context.Context, id string) (_ *storage.ContentRecord, err error) {
	defer recoverInto(&err)
	snap, err := c.read(ctx, storage.KeySavedContent)
	if err != nil {
		return nil, err
	}
	i := snap.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return &snap.content[i], nil
}

// Screenshot returns the stored screenshot for id, or "" if there is none.
func (c *Coordinator) Screenshot(ctx context.Context, id string) (string, error) {
	snap, err := c.read(ctx, storage.KeyScreenshots)
	if err != nil {
		return "", err
	}
	return snap.screenshots[id], nil
}

// Thumbnail returns the stored thumbnail for id, or "" if there is none.
func (c *Coordinator) Thumbnail(ctx context.Context, id string) (string, error) {
	snap, err := c.read(ctx, storage.KeyThumbnails)
	if err != nil {
		return "", err
	}
	return snap.thumbnails[id], nil
}

// Analysis returns the analysis record for id.
func (c *Coordinator) Analysis(ctx context.Context, id string) (*storage.AnalysisRecord, error) {
	snap, err := c.read(ctx, storage.KeyAIAnalysis)
	if err != nil {
		return nil, err
	}
	rec, ok := snap.analysis[id]
	if !ok {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	return &rec, nil
}

// ActiveTabs returns the tab tracking collection.
func (c *Coordinator) ActiveTabs(ctx context.Context) (map[string]storage.ActiveTab, error) {
	snap, err := c.read(ctx, storage.KeyActiveTabs)
	if err != nil {
		return nil, err
	}
	return snap.tabs, nil
}

// GetStats reports current usage without writing anything. bytesUsed and
// itemCount are computed live; lastUpdated is the time of the last
// recorded mutation.
func (c *Coordinator) GetStats(ctx context.Context) (_ storage.StorageStats, err error) {
	defer recoverInto(&err)

	stats, err := c.computeStats(ctx, c.now())
	if err != nil {
		return storage.StorageStats{}, err
	}
	snap, err := c.read(ctx, storage.KeyStorageStats)
	if err != nil {
		return storage.StorageStats{}, err
	}
	if snap.stats != nil && snap.stats.LastUpdated != "" {
		stats.LastUpdated = snap.stats.LastUpdated
	}
	return stats, nil
}

// GetData returns every stored key as raw JSON.
func (c *Coordinator) GetData(ctx context.Context) (map[string]json.RawMessage, error) {
	data, err := c.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read collections: %w", err)
	}
	return data, nil
}

// SearchQuery filters saved content. Zero fields match everything.
type SearchQuery struct {
	// Query is a case-insensitive substring of content, title or URL.
	Query     string              `json:"query,omitempty"`
	Category  string              `json:"category,omitempty"`
	Type      storage.ContentType `json:"type,omitempty"`
	Sentiment storage.Sentiment   `json:"sentiment,omitempty"`
	// Tags matches records carrying any of the given tags.
	Tags  []string  `json:"tags,omitempty"`
	Since time.Time `json:"since,omitempty"`
	Until time.Time `json:"until,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

// Search returns matching records, newest first.
func (c *Coordinator) Search(ctx context.Context, q SearchQuery) (_ []storage.ContentRecord, err error) {
	defer recoverInto(&err)

	all, err := c.GetSavedContent(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(q.Query)
	results := []storage.ContentRecord{}
	for _, rec := range all {
		if q.matches(rec, needle) {
			results = append(results, rec)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return timestampOf(results[i]).After(timestampOf(results[j]))
	})
	if q.Limit > 0 && len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func (q SearchQuery) matches(rec storage.ContentRecord, needle string) bool {
	if needle != "" &&
		!strings.Contains(strings.ToLower(rec.Content), needle) &&
		!strings.Contains(strings.ToLower(rec.Title), needle) &&
		!strings.Contains(strings.ToLower(rec.URL), needle) {
		return false
	}
	if q.Category != "" && rec.Category != q.Category {
		return false
	}
	if q.Type != "" && rec.Type != q.Type {
		return false
	}
	if q.Sentiment != "" && rec.Sentiment != q.Sentiment {
		return false
	}
	if len(q.Tags) > 0 && !hasAnyTag(rec.Tags, q.Tags) {
		return false
	}
	if !q.Since.IsZero() || !q.Until.IsZero() {
		ts, err := storage.ParseTimestamp(rec.Timestamp)
		if err != nil {
			return false
		}
		if !q.Since.IsZero() && ts.Before(q.Since) {
			return false
		}
		if !q.Until.IsZero() && ts.After(q.Until) {
			return false
		}
	}
	return true
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func timestampOf(rec storage.ContentRecord) time.Time {
	ts, _ := storage.ParseTimestamp(rec.Timestamp)
	return ts
}

// TagCount is one entry of ContentStats.TopTags.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ContentStats summarizes saved content for the dashboard.
type ContentStats struct {
	TotalItems int            `json:"totalItems"`
	ByType     map[string]int `json:"byType"`
	ByCategory map[string]int `json:"byCategory"`
	TopTags    []TagCount     `json:"topTags"`
	OldestItem string         `json:"oldestItem,omitempty"`
	NewestItem string         `json:"newestItem,omitempty"`
}

const topTagCount = 10

// ContentStats counts records by type and category and ranks tags by use.
// Oldest and newest follow insertion order.
func (c *Coordinator) ContentStats(ctx context.Context) (_ ContentStats, err error) {
	defer recoverInto(&err)

	all, err := c.GetSavedContent(ctx)
	if err != nil {
		return ContentStats{}, err
	}

	stats := ContentStats{
		TotalItems: len(all),
		ByType:     map[string]int{},
		ByCategory: map[string]int{},
		TopTags:    []TagCount{},
	}
	tagIndex := map[string]int{}
	for _, rec := range all {
		stats.ByType[string(rec.Type)]++
		stats.ByCategory[rec.Category]++
		for _, tag := range rec.Tags {
			if i, ok := tagIndex[tag]; ok {
				stats.TopTags[i].Count++
				continue
			}
			tagIndex[tag] = len(stats.TopTags)
			stats.TopTags = append(stats.TopTags, TagCount{Tag: tag, Count: 1})
		}
	}
	sort.SliceStable(stats.TopTags, func(i, j int) bool {
		return stats.TopTags[i].Count > stats.TopTags[j].Count
	})
	if len(stats.TopTags) > topTagCount {
		stats.TopTags = stats.TopTags[:topTagCount]
	}
	if len(all) > 0 {
		stats.OldestItem = all[0].Timestamp
		stats.NewestItem = all[len(all)-1].Timestamp
	}
	return stats, nil
}
