package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/runnerr0/memorylane/internal/analysis"
	"github.com/runnerr0/memorylane/internal/storage"
)

// SaveRequest is a newly captured item.
type SaveRequest struct {
	ID        string                `json:"id"`
	Type      storage.ContentType   `json:"type"`
	Content   string                `json:"content"`
	Context   string                `json:"context,omitempty"`
	URL       string                `json:"url"`
	Title     string                `json:"title"`
	Timestamp string                `json:"timestamp,omitempty"`
	Tags      []string              `json:"tags"`
	Category  string                `json:"category,omitempty"`
	Metadata  *storage.PageMetadata `json:"metadata,omitempty"`
	Auto      bool                  `json:"auto,omitempty"`

	// Screenshot is an image data URL. It is stored separately and never
	// kept on the content record.
	Screenshot string `json:"screenshot,omitempty"`
}

// Save persists a new item together with its analysis and, when a
// screenshot is attached, the screenshot and its thumbnail. It returns the
// item id.
func (c *Coordinator) Save(ctx context.Context, req SaveRequest) (id string, err error) {
	defer recoverInto(&err)

	if req.ID == "" {
		return "", malformed("id is required")
	}
	if !req.Type.Valid() {
		return "", malformed("unknown content type %q", req.Type)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.read(ctx, correlatedKeys...)
	if err != nil {
		return "", err
	}
	if snap.indexOf(req.ID) >= 0 {
		return "", malformed("memory %s already exists", req.ID)
	}

	if req.Timestamp == "" {
		req.Timestamp = storage.FormatTimestamp(c.now())
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	if req.Category == "" {
		req.Category = analysis.CategorizeContent(req.Content)
	}

	if req.Screenshot != "" {
		snap.screenshots[req.ID] = req.Screenshot
		snap.thumbnails[req.ID] = c.thumbnail(req.ID, req.Screenshot)
	}

	rec := c.analyzer.Analyze(analysis.Item{
		ID:       req.ID,
		Type:     req.Type,
		Content:  req.Content,
		URL:      req.URL,
		Title:    req.Title,
		Tags:     req.Tags,
		Category: req.Category,
	})
	snap.analysis[req.ID] = rec

	snap.content = append(snap.content, storage.ContentRecord{
		ID:              req.ID,
		Type:            req.Type,
		Content:         req.Content,
		Context:         req.Context,
		URL:             req.URL,
		Title:           req.Title,
		Timestamp:       req.Timestamp,
		Tags:            req.Tags,
		Category:        req.Category,
		Metadata:        req.Metadata,
		Auto:            req.Auto,
		AnalysisID:      req.ID,
		Summary:         rec.Summary,
		Keywords:        rec.Keywords,
		Sentiment:       rec.Sentiment,
		ImportanceScore: rec.ImportanceScore,
	})

	items, err := snap.encode(correlatedKeys...)
	if err != nil {
		return "", err
	}
	if err := c.store.Set(ctx, items); err != nil {
		return "", fmt.Errorf("save %s: %w", req.ID, err)
	}
	c.afterMutation(ctx, "save")

	c.log.Info().
		Str("id", req.ID).
		Str("type", string(req.Type)).
		Str("category", req.Category).
		Bool("screenshot", req.Screenshot != "").
		Msg("content saved")
	return req.ID, nil
}

func (c *Coordinator) thumbnail(id, screenshot string) string {
	thumb, err := MakeThumbnail(screenshot, c.thumbnailSize)
	if err != nil {
		c.log.Debug().Err(err).Str("id", id).Msg("thumbnail fell back to original image")
		return screenshot
	}
	return thumb
}

// Update shallow-merges fields over the record with id and returns the
// result. The id and analysisId fields are never overwritten. The analysis
// record is left as it was.
func (c *Coordinator) Update(ctx context.Context, id string, fields storage.Fields) (_ *storage.ContentRecord, err error) {
	defer recoverInto(&err)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.read(ctx, storage.KeySavedContent)
	if err != nil {
		return nil, err
	}
	i := snap.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	merged, err := mergeFields(snap.content[i], fields)
	if err != nil {
		return nil, err
	}
	snap.content[i] = merged

	items, err := snap.encode(storage.KeySavedContent)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, items); err != nil {
		return nil, fmt.Errorf("update %s: %w", id, err)
	}

	c.log.Info().Str("id", id).Int("fields", len(fields)).Msg("content updated")
	return &merged, nil
}

func mergeFields(rec storage.ContentRecord, fields storage.Fields) (storage.ContentRecord, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return rec, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return rec, err
	}
	for k, v := range fields {
		if k == "id" || k == "analysisId" {
			continue
		}
		m[k] = v
	}
	raw, err = json.Marshal(m)
	if err != nil {
		return rec, malformed("%v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var out storage.ContentRecord
	if err := dec.Decode(&out); err != nil {
		return rec, malformed("%v", err)
	}
	return out, nil
}

// Delete removes the record with id along with its screenshot, thumbnail
// and analysis. Missing correlated entries are not an error.
func (c *Coordinator) Delete(ctx context.Context, id string) (err error) {
	defer recoverInto(&err)

	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.read(ctx, correlatedKeys...)
	if err != nil {
		return err
	}
	if !snap.remove(id) {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	items, err := snap.encode(correlatedKeys...)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, items); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	c.afterMutation(ctx, "delete")
	c.audit(ctx, "delete", id)

	c.log.Info().Str("id", id).Msg("content deleted")
	return nil
}

// ClearAll empties every collection and writes fresh defaults. It returns
// the time of the clear.
func (c *Coordinator) ClearAll(ctx context.Context) (at time.Time, err error) {
	defer recoverInto(&err)

	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return time.Time{}, fmt.Errorf("clear: %w", err)
	}
	if err := c.initializeLocked(ctx); err != nil {
		return time.Time{}, err
	}
	c.audit(ctx, "clear", "")

	at = c.now()
	c.log.Warn().Msg("all data cleared")
	return at, nil
}

// PruneOlderThan deletes every record whose timestamp is before cutoff,
// together with its correlated entries. Records with unparseable
// timestamps are kept. It returns the number of records removed.
func (c *Coordinator) PruneOlderThan(ctx context.Context, cutoff time.Time) (n int, err error) {
	defer recoverInto(&err)

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.read(ctx, correlatedKeys...)
	if err != nil {
		return 0, err
	}

	var expired []string
	for _, rec := range snap.content {
		ts, err := storage.ParseTimestamp(rec.Timestamp)
		if err == nil && ts.Before(cutoff) {
			expired = append(expired, rec.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	for _, id := range expired {
		snap.remove(id)
	}

	items, err := snap.encode(correlatedKeys...)
	if err != nil {
		return 0, err
	}
	if err := c.store.Set(ctx, items); err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	c.afterMutation(ctx, "prune")
	c.audit(ctx, "prune", fmt.Sprintf("%d records before %s", len(expired), storage.FormatTimestamp(cutoff)))

	c.log.Info().Int("removed", len(expired)).Time("cutoff", cutoff).Msg("pruned old content")
	return len(expired), nil
}

// TrackTab records tabID as the active tab. Time spent in the previously
// active tab is added to its total.
func (c *Coordinator) TrackTab(ctx context.Context, tabID, url, title string) (err error) {
	defer recoverInto(&err)

	if tabID == "" {
		return malformed("tab id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.read(ctx, storage.KeyActiveTabs)
	if err != nil {
		return err
	}

	now := c.now().UnixMilli()
	for id, tab := range snap.tabs {
		if tab.Active {
			tab.TotalTime += now - tab.StartTime
			tab.Active = false
			snap.tabs[id] = tab
		}
	}
	snap.tabs[tabID] = storage.ActiveTab{
		URL:       url,
		Title:     title,
		StartTime: now,
		Active:    true,
		TotalTime: snap.tabs[tabID].TotalTime,
	}

	items, err := snap.encode(storage.KeyActiveTabs)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, items); err != nil {
		return fmt.Errorf("track tab: %w", err)
	}
	return nil
}
