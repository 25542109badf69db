package analysis

import (
	"time"

	"github.com/runnerr0/memorylane/internal/storage"
)

// Item is the part of a captured item the analyzer reads.
type Item struct {
	ID       string
	Type     storage.ContentType
	Content  string
	URL      string
	Title    string
	Tags     []string
	Category string
}

// Analyzer composes the individual heuristics into an AnalysisRecord.
type Analyzer struct {
	// Now stamps each record. Defaults to time.Now.
	Now func() time.Time
}

// NewAnalyzer returns an Analyzer using the wall clock.
func NewAnalyzer() *Analyzer {
	return &Analyzer{Now: time.Now}
}

// Analyze builds the AnalysisRecord for item. Apart from the timestamp the
// output depends only on item.
func (a *Analyzer) Analyze(item Item) storage.AnalysisRecord {
	now := time.Now
	if a != nil && a.Now != nil {
		now = a.Now
	}

	topics := make([]string, len(item.Tags))
	copy(topics, item.Tags)

	return storage.AnalysisRecord{
		ID:               item.ID,
		Summary:          Summarize(item.Content, item.Title),
		Keywords:         ExtractKeywords(item.Content),
		Tags:             GenerateSmartTags(item.Content, item.URL, item.Title),
		Sentiment:        AnalyzeSentiment(item.Content),
		ImportanceScore:  CalculateImportance(item.Content),
		EmotionalProfile: AnalyzeEmotion(item.Content),
		LearningValue:    CalculateLearningValue(item),
		Topics:           topics,
		Timestamp:        storage.FormatTimestamp(now()),
	}
}
