package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/runnerr0/memorylane/internal/storage"
)

// ExportVersion is written into every export.
const ExportVersion = "1.0.0"

// Export is a full dump of the store.
type Export struct {
	ExportDate string                     `json:"exportDate"`
	Version    string                     `json:"version"`
	Data       map[string]json.RawMessage `json:"data"`
}

// Export dumps every stored key.
func (c *Coordinator) Export(ctx context.Context) (_ *Export, err error) {
	defer recoverInto(&err)

	data, err := c.store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return &Export{
		ExportDate: storage.FormatTimestamp(c.now()),
		Version:    ExportVersion,
		Data:       data,
	}, nil
}

// Import writes every key of exp.Data over the store and recomputes
// stats. Known collections must decode to their expected shapes; a
// malformed export writes nothing.
func (c *Coordinator) Import(ctx context.Context, exp *Export) (err error) {
	defer recoverInto(&err)

	if exp == nil || exp.Data == nil {
		return malformed("invalid import data format")
	}
	if err := validateCollections(exp.Data); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(ctx, exp.Data); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	c.afterMutation(ctx, "import")
	c.audit(ctx, "import", fmt.Sprintf("%d keys", len(exp.Data)))

	c.log.Info().Int("keys", len(exp.Data)).Msg("data imported")
	return nil
}

func validateCollections(data map[string]json.RawMessage) error {
	targets := map[string]func() any{
		storage.KeySavedContent: func() any { return &[]storage.ContentRecord{} },
		storage.KeyScreenshots:  func() any { return &map[string]string{} },
		storage.KeyThumbnails:   func() any { return &map[string]string{} },
		storage.KeyAIAnalysis:   func() any { return &map[string]storage.AnalysisRecord{} },
		storage.KeyActiveTabs:   func() any { return &map[string]storage.ActiveTab{} },
		storage.KeyStorageStats: func() any { return &storage.StorageStats{} },
	}
	for key, raw := range data {
		if !json.Valid(raw) {
			return malformed("%s: invalid JSON", key)
		}
		newTarget, ok := targets[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, newTarget()); err != nil {
			return malformed("%s: %v", key, err)
		}
	}

	var content []storage.ContentRecord
	if raw, ok := data[storage.KeySavedContent]; ok && !isNull(raw) {
		_ = json.Unmarshal(raw, &content)
		seen := map[string]bool{}
		for _, rec := range content {
			if rec.ID == "" {
				return malformed("%s: record without id", storage.KeySavedContent)
			}
			if seen[rec.ID] {
				return malformed("%s: duplicate id %s", storage.KeySavedContent, rec.ID)
			}
			seen[rec.ID] = true
		}
	}
	return nil
}
