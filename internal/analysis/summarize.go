package analysis

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	// SummaryMaxLength bounds every summary.
	SummaryMaxLength = 300
	// ShortTextLength is the length below which text is returned as is.
	ShortTextLength = 50
	// NoContentSummary is returned for empty input.
	NoContentSummary = "No content available for summary."

	minSentenceWords = 5
	maxSentenceWords = 50
	minSentenceChars = 30
	maxSentenceChars = 500

	// A summary longer than this fraction of its source is replaced by the
	// first sentence.
	maxCompressionRatio = 0.9
)

// SignalTerms raise the score of a sentence containing them.
var SignalTerms = []string{
	"important", "key", "main", "significant", "critical", "essential",
	"note", "remember", "summary", "conclusion", "result", "finding",
	"solution", "answer", "explained", "guide", "tutorial", "how to",
	"because", "therefore", "however", "shows", "demonstrates", "reveals",
}

var titleStopWords = map[string]bool{"this": true, "that": true, "with": true, "from": true}

var (
	digitRun   = regexp.MustCompile(`\d+`)
	properNoun = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
)

type scoredSentence struct {
	text  string
	score float64
	index int
}

// Summarize builds an extractive summary of at most SummaryMaxLength
// characters. The title, when given, boosts sentences that mention its
// words. Summarize never fails; degenerate input falls back to truncation.
func Summarize(text, title string) string {
	if text == "" {
		return NoContentSummary
	}
	if runeLen(text) < ShortTextLength {
		return text
	}

	cleaned := CleanText(text)
	cleanedLen := runeLen(cleaned)
	if cleanedLen <= SummaryMaxLength {
		return cleaned
	}

	sentences := qualifyingSentences(cleaned)
	switch len(sentences) {
	case 0:
		return truncate(cleaned, SummaryMaxLength-3) + "..."
	case 1:
		return ellipsize(sentences[0])
	}

	titleWords := titleMatchers(title)
	scored := make([]scoredSentence, len(sentences))
	for i, s := range sentences {
		scored[i] = scoredSentence{
			text:  s,
			score: scoreSentence(s, i, len(sentences), titleWords),
			index: i,
		}
	}

	keep := 3
	if len(sentences) < 5 {
		keep = 2
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].score > scored[b].score })
	top := scored[:keep]
	sort.SliceStable(top, func(a, b int) bool { return top[a].index < top[b].index })

	parts := make([]string, len(top))
	for i, s := range top {
		parts[i] = s.text
	}
	summary := strings.Join(parts, " ")

	if !endsWithTerminator(summary) {
		summary += "."
	}
	if runeLen(summary) > SummaryMaxLength {
		summary = cutAtSentence(summary)
	}

	if float64(runeLen(summary))/float64(cleanedLen) > maxCompressionRatio {
		summary = ellipsize(sentences[0])
	}
	return summary
}

// SplitSentences splits cleaned text after every '.', '!' or '?' that is
// followed by whitespace. The terminator stays with its sentence.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		out = append(out, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}

func qualifyingSentences(cleaned string) []string {
	var out []string
	for _, s := range SplitSentences(cleaned) {
		s = strings.TrimSpace(s)
		words := len(strings.Fields(s))
		chars := runeLen(s)
		if words >= minSentenceWords && words <= maxSentenceWords &&
			chars >= minSentenceChars && chars <= maxSentenceChars {
			out = append(out, s)
		}
	}
	return out
}

func titleMatchers(title string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if runeLen(w) <= 3 || titleStopWords[w] {
			continue
		}
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

// scoreSentence rates a sentence at position index of total. The position
// bonuses are independent checks: with two sentences the last one is also
// the second and receives both.
func scoreSentence(s string, index, total int, titleWords []*regexp.Regexp) float64 {
	var score float64
	lower := strings.ToLower(s)

	if index == 0 {
		score += 5
	}
	if index == 1 {
		score += 3
	}
	if index == total-1 {
		score += 2
	}

	switch words := len(strings.Fields(s)); {
	case words >= 10 && words <= 25:
		score += 4
	case words >= 8 && words <= 30:
		score += 2
	case words >= 5 && words <= 35:
		score += 1
	}

	for _, term := range SignalTerms {
		if strings.Contains(lower, term) {
			score += 2
		}
	}

	score += 0.5 * float64(len(digitRun.FindAllStringIndex(s, -1)))

	for _, re := range titleWords {
		if re.MatchString(s) {
			score += 1.5
		}
	}

	if strings.Contains(s, "?") {
		score--
	}

	score += 0.3 * float64(len(properNoun.FindAllStringIndex(s, -1)))
	return score
}

// cutAtSentence shortens an over-long summary, preferring to end on the
// last full stop at or before character 297.
func cutAtSentence(summary string) string {
	runes := []rune(summary)
	cut := -1
	for i := min(SummaryMaxLength-3, len(runes)-1); i >= 0; i-- {
		if runes[i] == '.' {
			cut = i
			break
		}
	}
	if cut > 150 {
		return string(runes[:cut+1])
	}
	return string(runes[:SummaryMaxLength-3]) + "..."
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func endsWithTerminator(s string) bool {
	if s == "" {
		return false
	}
	r := []rune(s)
	return isTerminator(r[len(r)-1])
}
