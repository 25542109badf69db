// Package analysis implements the heuristic text analysis applied to every
// captured item: normalization, extractive summarization, keyword and tag
// extraction, categorization, sentiment and scoring.
//
// Everything here is a pure function of its inputs. Lengths are measured in
// characters (runes), not bytes.
package analysis

import "strings"

// MaxContentLength is the ceiling applied to scraped page text.
const MaxContentLength = 10000

// CleanText collapses every whitespace run to a single space and trims the
// result.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Normalize cleans text and clamps it to MaxContentLength characters.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	return strings.TrimSpace(truncate(CleanText(text), MaxContentLength))
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func runeLen(s string) int {
	return len([]rune(s))
}

// ellipsize cuts s to 297 characters and appends "..." when it is longer
// than 300 characters.
func ellipsize(s string) string {
	if runeLen(s) > SummaryMaxLength {
		return truncate(s, SummaryMaxLength-3) + "..."
	}
	return s
}
