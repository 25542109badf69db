package analysis

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// MaxKeywords and MaxTags bound the extractor outputs.
const (
	MaxKeywords = 10
	MaxTags     = 10
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "is": true, "was": true, "are": true, "were": true,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// ExtractKeywords returns up to MaxKeywords words ranked by frequency. Ties
// keep the order in which the words first appear.
func ExtractKeywords(text string) []string {
	counts := make(map[string]int)
	var order []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = nonAlnum.ReplaceAllString(w, "")
		if len(w) <= 3 || stopWords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	if order == nil {
		return []string{}
	}
	return order
}

type labelPattern struct {
	label string
	re    *regexp.Regexp
}

func wordPattern(label, alternatives string) labelPattern {
	return labelPattern{label: label, re: regexp.MustCompile(`(?i)\b(` + alternatives + `)\b`)}
}

var techPatterns = []labelPattern{
	wordPattern("javascript", `javascript|js|node\.?js|react|vue|angular`),
	wordPattern("python", `python|django|flask|pandas|numpy`),
	wordPattern("java", `java|spring|maven|gradle`),
	wordPattern("web-dev", `html|css|frontend|backend|fullstack`),
	wordPattern("database", `sql|database|mongodb|postgres|mysql`),
	wordPattern("devops", `docker|kubernetes|ci/cd|devops|aws|cloud`),
	wordPattern("ai-ml", `ai|machine learning|ml|deep learning|neural network`),
	wordPattern("mobile", `android|ios|mobile|app development|react native`),
}

var contentPatterns = []labelPattern{
	wordPattern("tutorial", `tutorial|how to|guide|step by step|learn`),
	wordPattern("documentation", `documentation|docs|reference|api|specification`),
	wordPattern("article", `article|blog|post|story`),
	wordPattern("code", `code|snippet|example|implementation|function`),
	wordPattern("question", `question|problem|issue|help|error`),
	wordPattern("discussion", `discussion|opinion|thoughts|debate`),
}

// knownSites maps hostname fragments to tags, checked in order.
var knownSites = []struct{ host, tag string }{
	{"github.com", "github"},
	{"stackoverflow.com", "stackoverflow"},
	{"medium.com", "medium"},
	{"dev.to", "dev.to"},
	{"reddit.com", "reddit"},
	{"youtube.com", "youtube"},
}

var hashtag = regexp.MustCompile(`#\w+`)

// GenerateSmartTags derives up to MaxTags tags from content, its URL and
// title. Tags keep insertion order: technology labels, content-type labels,
// site label, hashtags, then keywords.
func GenerateSmartTags(content, pageURL, title string) []string {
	tags := newOrderedSet()
	combined := strings.ToLower(content) + " " + strings.ToLower(title)

	for _, p := range techPatterns {
		if p.re.MatchString(combined) {
			tags.add(p.label)
		}
	}
	for _, p := range contentPatterns {
		if p.re.MatchString(combined) {
			tags.add(p.label)
		}
	}

	if tag := SiteTag(pageURL); tag != "" {
		tags.add(tag)
	}

	for _, h := range hashtag.FindAllString(content, 3) {
		tags.add(strings.ToLower(h[1:]))
	}

	keywords := ExtractKeywords(content)
	for i := 0; i < len(keywords) && i < 3; i++ {
		if n := len(keywords[i]); n > 3 && n < 15 {
			tags.add(keywords[i])
		}
	}

	return tags.first(MaxTags)
}

// SiteTag returns the tag for a well-known site, or "" when the URL is
// unparseable or the host is not recognized.
func SiteTag(pageURL string) string {
	if pageURL == "" {
		return ""
	}
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.Replace(strings.ToLower(u.Hostname()), "www.", "", 1)
	for _, s := range knownSites {
		if strings.Contains(host, s.host) {
			return s.tag
		}
	}
	return ""
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(v string) {
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}

func (s *orderedSet) first(n int) []string {
	if len(s.items) > n {
		return s.items[:n]
	}
	if s.items == nil {
		return []string{}
	}
	return s.items
}
