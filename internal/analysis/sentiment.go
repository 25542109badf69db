package analysis

import (
	"math"
	"strings"

	"github.com/runnerr0/memorylane/internal/storage"
)

var (
	positiveWords = []string{"good", "great", "excellent", "amazing", "wonderful", "fantastic", "love", "like", "best", "happy"}
	negativeWords = []string{"bad", "terrible", "awful", "hate", "worst", "poor", "disappointing", "sad", "angry"}

	joyWords      = []string{"happy", "joy", "excited", "wonderful", "amazing", "love"}
	sadnessWords  = []string{"sad", "unhappy", "depressed", "down", "blue"}
	angerWords    = []string{"angry", "mad", "furious", "annoyed", "irritated"}
	fearWords     = []string{"afraid", "scared", "worried", "anxious", "nervous"}
	surpriseWords = []string{"surprised", "shocked", "amazed", "astonished"}
)

const sentimentThreshold = 0.2

// AnalyzeSentiment classifies text by counting lexicon hits. Matches are
// substrings: "unhappy" counts as "happy".
func AnalyzeSentiment(text string) storage.Sentiment {
	lower := strings.ToLower(text)
	pos := countAll(lower, positiveWords)
	neg := countAll(lower, negativeWords)
	if pos+neg == 0 {
		return storage.SentimentNeutral
	}

	score := float64(pos-neg) / float64(pos+neg)
	switch {
	case score > sentimentThreshold:
		return storage.SentimentPositive
	case score < -sentimentThreshold:
		return storage.SentimentNegative
	default:
		return storage.SentimentNeutral
	}
}

// AnalyzeEmotion returns raw lexicon hit counts per emotion.
func AnalyzeEmotion(text string) storage.EmotionalProfile {
	lower := strings.ToLower(text)
	return storage.EmotionalProfile{
		Joy:      countAll(lower, joyWords),
		Sadness:  countAll(lower, sadnessWords),
		Anger:    countAll(lower, angerWords),
		Fear:     countAll(lower, fearWords),
		Surprise: countAll(lower, surpriseWords),
	}
}

// CalculateImportance scores text from 0 to 10 on length, links and
// numbers.
func CalculateImportance(text string) int {
	score := math.Min(float64(runeLen(text))/1000, 5)
	if strings.Contains(text, "http") {
		score += 2
	}
	if strings.IndexFunc(text, isASCIIDigit) >= 0 {
		score++
	}
	return clamp(int(math.Floor(score+0.5)), 0, 10)
}

// CalculateLearningValue scores how useful an item is likely to be for
// later study, capped at 10.
func CalculateLearningValue(item Item) int {
	value := 5
	if item.Type == storage.TypeNote {
		value += 2
	}
	switch item.Category {
	case "education", "science":
		value += 3
	case "technology":
		value += 2
	}
	if runeLen(item.Content) > 500 {
		value++
	}
	return min(value, 10)
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
