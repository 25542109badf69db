package memory

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/memorylane/internal/storage"
)

var testNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestCoordinator(t *testing.T) (*Coordinator, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	c := New(store, WithClock(func() time.Time { return testNow }))
	require.NoError(t, c.Initialize(context.Background()))
	return c, store
}

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func sampleRequest(id string) SaveRequest {
	return SaveRequest{
		ID:        id,
		Type:      storage.TypeSelection,
		Content:   "Docker makes deployment simple. This tutorial shows the key steps for building images.",
		Context:   "surrounding paragraph",
		URL:       "https://github.com/example/repo",
		Title:     "Docker tutorial",
		Timestamp: "2024-05-30T10:00:00.000Z",
		Tags:      []string{"docker"},
		Category:  "technology",
	}
}

// collections returns every stored key except storageStats.
func collections(t *testing.T, s storage.Store) map[string]string {
	t.Helper()
	all, err := s.Get(context.Background())
	require.NoError(t, err)
	out := map[string]string{}
	for k, v := range all {
		if k != storage.KeyStorageStats {
			out[k] = string(v)
		}
	}
	return out
}

func TestInitialize_WritesDefaults(t *testing.T) {
	_, store := newTestCoordinator(t)
	all, err := store.Get(context.Background())
	require.NoError(t, err)

	assert.JSONEq(t, `[]`, string(all[storage.KeySavedContent]))
	assert.JSONEq(t, `{}`, string(all[storage.KeyScreenshots]))
	assert.JSONEq(t, `{}`, string(all[storage.KeyThumbnails]))
	assert.JSONEq(t, `{}`, string(all[storage.KeyAIAnalysis]))
	assert.JSONEq(t, `{}`, string(all[storage.KeyActiveTabs]))
	assert.JSONEq(t, `{"bytesUsed":0,"itemCount":0,"lastUpdated":"2024-06-01T09:30:00.000Z"}`,
		string(all[storage.KeyStorageStats]))
}

func TestInitialize_KeepsExisting(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	_, err := c.Save(ctx, sampleRequest("1"))
	require.NoError(t, err)

	require.NoError(t, c.Initialize(ctx))
	got, err := c.GetSavedContent(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSave_PersistsRecordAndAnalysis(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	id, err := c.Save(ctx, sampleRequest("100"))
	require.NoError(t, err)
	assert.Equal(t, "100", id)

	rec, err := c.Get(ctx, "100")
	require.NoError(t, err)
	an, err := c.Analysis(ctx, "100")
	require.NoError(t, err)

	assert.Equal(t, "100", rec.AnalysisID)
	assert.Equal(t, an.Summary, rec.Summary)
	assert.Equal(t, an.Keywords, rec.Keywords)
	assert.Equal(t, an.Sentiment, rec.Sentiment)
	assert.Equal(t, an.ImportanceScore, rec.ImportanceScore)
	assert.Equal(t, []string{"docker"}, an.Topics)
	assert.Equal(t, "surrounding paragraph", rec.Context)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ItemCount)
	bytesUsed, err := store.BytesInUse(ctx)
	require.NoError(t, err)
	assert.Equal(t, bytesUsed, stats.BytesUsed)
}

func TestSave_Defaults(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.Save(ctx, SaveRequest{
		ID:      "n1",
		Type:    storage.TypeNote,
		Content: "Research study data for the experiment.",
	})
	require.NoError(t, err)

	rec, err := c.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01T09:30:00.000Z", rec.Timestamp)
	assert.Equal(t, "science", rec.Category)
	assert.Equal(t, []string{}, rec.Tags)
}

func TestSave_Validation(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	_, err := c.Save(ctx, SaveRequest{Type: storage.TypePage})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = c.Save(ctx, SaveRequest{ID: "x", Type: "video"})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = c.Save(ctx, sampleRequest("dup"))
	require.NoError(t, err)
	_, err = c.Save(ctx, sampleRequest("dup"))
	assert.ErrorIs(t, err, ErrMalformedInput)

	all, err := c.GetSavedContent(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSave_ScreenshotAndThumbnail(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	req := sampleRequest("shot")
	req.Screenshot = pngDataURL(t, 120, 80)
	_, err := c.Save(ctx, req)
	require.NoError(t, err)

	shot, err := c.Screenshot(ctx, "shot")
	require.NoError(t, err)
	assert.Equal(t, req.Screenshot, shot)

	thumb, err := c.Thumbnail(ctx, "shot")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(thumb, "data:image/jpeg;base64,"))
	img, err := decodeDataURL(thumb)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, DefaultThumbnailSize, DefaultThumbnailSize), img.Bounds())

	raw, err := store.Get(ctx, storage.KeySavedContent)
	require.NoError(t, err)
	assert.NotContains(t, string(raw[storage.KeySavedContent]), "screenshot")
}

func TestSave_ThumbnailFallsBackToOriginal(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	req := sampleRequest("bad")
	req.Screenshot = "data:image/png;base64,bm90IGFuIGltYWdl"
	_, err := c.Save(ctx, req)
	require.NoError(t, err)

	thumb, err := c.Thumbnail(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, req.Screenshot, thumb)
}

func TestSaveDelete_RoundTrip(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()
	_, err := c.Save(ctx, sampleRequest("keep"))
	require.NoError(t, err)

	before := collections(t, store)

	req := sampleRequest("temp")
	req.Screenshot = pngDataURL(t, 10, 10)
	_, err = c.Save(ctx, req)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "temp"))

	after := collections(t, store)
	require.Equal(t, len(before), len(after))
	for k, v := range before {
		assert.JSONEq(t, v, after[k], k)
	}

	all, err := c.GetSavedContent(ctx)
	require.NoError(t, err)
	for _, rec := range all {
		assert.NotEqual(t, "temp", rec.ID)
	}
}

func TestDelete_RemovesCorrelatedRecords(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	req := sampleRequest("x")
	req.Screenshot = pngDataURL(t, 20, 20)
	_, err := c.Save(ctx, req)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "x"))

	_, err = c.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	shot, err := c.Screenshot(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, shot)
	thumb, err := c.Thumbnail(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, thumb)
	_, err = c.Analysis(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ItemCount)
}

func TestDelete_WithoutScreenshot(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	_, err := c.Save(ctx, sampleRequest("plain"))
	require.NoError(t, err)
	assert.NoError(t, c.Delete(ctx, "plain"))
}

func TestNotFound_MutatesNothing(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()
	_, err := c.Save(ctx, sampleRequest("1"))
	require.NoError(t, err)

	before, err := store.Get(ctx)
	require.NoError(t, err)

	_, err = c.Update(ctx, "missing-id", storage.Fields{"title": json.RawMessage(`"x"`)})
	assert.ErrorIs(t, err, ErrNotFound)
	err = c.Delete(ctx, "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdate_ShallowMerge(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	_, err := c.Save(ctx, sampleRequest("u"))
	require.NoError(t, err)
	anBefore, err := c.Analysis(ctx, "u")
	require.NoError(t, err)

	got, err := c.Update(ctx, "u", storage.Fields{
		"tags":       json.RawMessage(`["a","b"]`),
		"title":      json.RawMessage(`"Renamed"`),
		"metadata":   json.RawMessage(`{"author":"Sam"}`),
		"id":         json.RawMessage(`"hijack"`),
		"analysisId": json.RawMessage(`"hijack"`),
	})
	require.NoError(t, err)
	assert.Equal(t, "u", got.ID)
	assert.Equal(t, "u", got.AnalysisID)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, &storage.PageMetadata{Author: "Sam"}, got.Metadata)
	assert.Equal(t, "https://github.com/example/repo", got.URL)

	stored, err := c.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	anAfter, err := c.Analysis(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, anBefore, anAfter)
}

func TestUpdate_RejectsUnknownAndMistypedFields(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()
	_, err := c.Save(ctx, sampleRequest("u"))
	require.NoError(t, err)

	_, err = c.Update(ctx, "u", storage.Fields{"favourite": json.RawMessage(`true`)})
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = c.Update(ctx, "u", storage.Fields{"tags": json.RawMessage(`"not-a-list"`)})
	assert.ErrorIs(t, err, ErrMalformedInput)

	rec, err := c.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"docker"}, rec.Tags)
}

func TestClearAll(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()

	req := sampleRequest("1")
	req.Screenshot = pngDataURL(t, 10, 10)
	_, err := c.Save(ctx, req)
	require.NoError(t, err)
	require.NoError(t, c.TrackTab(ctx, "7", "https://a", "A"))

	at, err := c.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, testNow, at)

	for k, v := range collections(t, store) {
		if k == storage.KeySavedContent {
			assert.JSONEq(t, `[]`, v)
		} else {
			assert.JSONEq(t, `{}`, v, k)
		}
	}
	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ItemCount)
}

func TestBackendErrorsPropagate(t *testing.T) {
	c, store := newTestCoordinator(t)
	ctx := context.Background()
	boom := errors.New("quota exceeded")
	store.FailWith = boom

	_, err := c.Save(ctx, sampleRequest("1"))
	assert.ErrorIs(t, err, boom)
	_, err = c.Update(ctx, "1", nil)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.Delete(ctx, "1"), boom)
	_, err = c.ClearAll(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = c.GetStats(ctx)
	assert.ErrorIs(t, err, boom)
}

func TestCancelledContext(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Save(ctx, sampleRequest("1"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentSaves(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Save(ctx, sampleRequest(fmt.Sprintf("c%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := c.GetSavedContent(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, stats.ItemCount)
}

func TestPruneOlderThan(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	old := sampleRequest("old")
	old.Timestamp = "2023-01-01T00:00:00.000Z"
	old.Screenshot = pngDataURL(t, 4, 4)
	recent := sampleRequest("recent")
	weird := sampleRequest("weird")
	weird.Timestamp = "sometime"
	for _, r := range []SaveRequest{old, recent, weird} {
		_, err := c.Save(ctx, r)
		require.NoError(t, err)
	}

	n, err := c.PruneOlderThan(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = c.Analysis(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	shot, err := c.Screenshot(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, shot)

	all, err := c.GetSavedContent(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err = c.PruneOlderThan(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTrackTab(t *testing.T) {
	store := storage.NewMemoryStore()
	now := testNow
	c := New(store, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	require.NoError(t, c.TrackTab(ctx, "1", "https://a", "A"))
	now = now.Add(3 * time.Second)
	require.NoError(t, c.TrackTab(ctx, "2", "https://b", "B"))

	tabs, err := c.ActiveTabs(ctx)
	require.NoError(t, err)
	assert.False(t, tabs["1"].Active)
	assert.Equal(t, int64(3000), tabs["1"].TotalTime)
	assert.True(t, tabs["2"].Active)

	assert.ErrorIs(t, c.TrackTab(ctx, "", "u", "t"), ErrMalformedInput)
}

func TestSQLiteBackedCoordinator(t *testing.T) {
	store, err := storage.OpenSQLite(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := New(store, WithClock(func() time.Time { return testNow }))
	ctx := context.Background()
	require.NoError(t, c.Initialize(ctx))

	_, err = c.Save(ctx, sampleRequest("s1"))
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "s1"))
	_, err = c.ClearAll(ctx)
	require.NoError(t, err)

	entries, err := store.RecentAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "clear", entries[0].Action)
	assert.Equal(t, "delete", entries[1].Action)
	assert.Equal(t, "s1", entries[1].Detail)
}

func TestNewID_Monotonic(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	a := NewID(at)
	b := NewID(at)
	assert.NotEqual(t, a, b)
	assert.Less(t, a, b)
}
