package analysis

import "strings"

// CategoryGeneral is returned when no category keyword occurs.
const CategoryGeneral = "general"

// Categories lists each category with its keywords, in precedence order.
var Categories = []struct {
	Name     string
	Keywords []string
}{
	{"technology", []string{"code", "programming", "software", "tech", "api", "database", "algorithm"}},
	{"business", []string{"market", "business", "finance", "company", "revenue", "sales"}},
	{"science", []string{"research", "study", "experiment", "data", "analysis", "theory"}},
	{"education", []string{"learn", "tutorial", "course", "lesson", "guide", "teaching"}},
	{"news", []string{"news", "report", "breaking", "update", "announced"}},
	{"entertainment", []string{"movie", "music", "game", "show", "entertainment", "video"}},
}

// CategorizeContent picks the category whose keywords occur most often in
// text. Keywords are counted as substrings, so "database" also counts as
// "data". On a tie the earlier category wins.
func CategorizeContent(text string) string {
	lower := strings.ToLower(text)
	best, bestScore := CategoryGeneral, 0
	for _, c := range Categories {
		if score := countAll(lower, c.Keywords); score > bestScore {
			best, bestScore = c.Name, score
		}
	}
	return best
}

// countAll sums the non-overlapping occurrences of every word in text.
func countAll(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}
