package storage

import (
	"encoding/json"
	"time"
)

// Collection keys. These names are shared with the extension and dashboard
// and must not change.
const (
	KeySavedContent = "savedContent"
	KeyScreenshots  = "screenshots"
	KeyThumbnails   = "thumbnails"
	KeyAIAnalysis   = "aiAnalysis"
	KeyActiveTabs   = "activeTabs"
	KeyStorageStats = "storageStats"
)

// AllKeys lists every collection owned by the coordinator, in
// initialization order.
var AllKeys = []string{
	KeySavedContent,
	KeyScreenshots,
	KeyThumbnails,
	KeyAIAnalysis,
	KeyActiveTabs,
	KeyStorageStats,
}

// ContentType is the kind of captured item.
type ContentType string

const (
	TypeSelection ContentType = "selection"
	TypePage      ContentType = "page"
	TypeNote      ContentType = "note"
	TypeAutoPage  ContentType = "auto-page"
)

// Valid reports whether t is one of the known content types.
func (t ContentType) Valid() bool {
	switch t {
	case TypeSelection, TypePage, TypeNote, TypeAutoPage:
		return true
	}
	return false
}

// Sentiment is the lexicon-based polarity of a piece of text.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// PageMetadata holds the meta tags scraped alongside a page capture.
type PageMetadata struct {
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Author      string `json:"author,omitempty"`
}

// ContentRecord is one captured unit as persisted in savedContent.
type ContentRecord struct {
	ID        string        `json:"id"`
	Type      ContentType   `json:"type"`
	Content   string        `json:"content"`
	Context   string        `json:"context,omitempty"`
	URL       string        `json:"url"`
	Title     string        `json:"title"`
	Timestamp string        `json:"timestamp"`
	Tags      []string      `json:"tags"`
	Category  string        `json:"category"`
	Metadata  *PageMetadata `json:"metadata,omitempty"`
	Auto      bool          `json:"auto,omitempty"`

	// Copied from the AnalysisRecord at save time.
	AnalysisID      string    `json:"analysisId"`
	Summary         string    `json:"summary"`
	Keywords        []string  `json:"keywords"`
	Sentiment       Sentiment `json:"sentiment"`
	ImportanceScore int       `json:"importanceScore"`
}

// EmotionalProfile holds raw lexicon hit counts per emotion.
type EmotionalProfile struct {
	Joy      int `json:"joy"`
	Sadness  int `json:"sadness"`
	Anger    int `json:"anger"`
	Fear     int `json:"fear"`
	Surprise int `json:"surprise"`
}

// AnalysisRecord is the derived heuristic metadata for one ContentRecord.
type AnalysisRecord struct {
	ID               string           `json:"id"`
	Summary          string           `json:"summary"`
	Keywords         []string         `json:"keywords"`
	Tags             []string         `json:"tags"`
	Sentiment        Sentiment        `json:"sentiment"`
	ImportanceScore  int              `json:"importanceScore"`
	EmotionalProfile EmotionalProfile `json:"emotionalProfile"`
	LearningValue    int              `json:"learningValue"`
	Topics           []string         `json:"topics"`
	Timestamp        string           `json:"timestamp"`
}

// ActiveTab tracks time spent in one browser tab. Times are Unix
// milliseconds.
type ActiveTab struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	StartTime int64  `json:"startTime"`
	Active    bool   `json:"active"`
	TotalTime int64  `json:"totalTime"`
}

// StorageStats is the singleton usage summary.
type StorageStats struct {
	BytesUsed   int64  `json:"bytesUsed"`
	ItemCount   int    `json:"itemCount"`
	LastUpdated string `json:"lastUpdated"`
}

// Fields is a partial ContentRecord keyed by JSON field name.
type Fields map[string]json.RawMessage

// FormatTimestamp renders t the way the browser's Date.toISOString does.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseTimestamp parses an ISO-8601 timestamp as written by FormatTimestamp
// or by the extension.
func ParseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	var err error
	for _, f := range formats {
		var t time.Time
		if t, err = time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
