// Package capture turns HTML documents and text selections into save
// requests, and decides whether a page qualifies for automatic capture.
package capture

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/runnerr0/memorylane/internal/analysis"
	"github.com/runnerr0/memorylane/internal/memory"
	"github.com/runnerr0/memorylane/internal/storage"
)

const (
	maxContextLength = 500
	maxPageTags      = 10
	selectionTags    = 5
)

// mainSelectors are tried in order before falling back to article
// extraction and then the whole body.
var mainSelectors = []string{"main", "article", `[role="main"]`, ".content", "#content"}

// Page is the content extracted from one HTML document.
type Page struct {
	URL      string
	Title    string
	Content  string
	Tags     []string
	Metadata storage.PageMetadata
}

// ExtractPage parses an HTML document served from pageURL.
func ExtractPage(r io.Reader, pageURL string) (*Page, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	p := &Page{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Metadata: storage.PageMetadata{
			Description: metaContent(doc, "description"),
			Keywords:    metaContent(doc, "keywords"),
			Author:      metaContent(doc, "author"),
		},
	}
	p.Content = mainContent(doc, raw, pageURL)
	p.Tags = pageTags(doc, p.Title, p.Metadata.Keywords)
	return p, nil
}

func mainContent(doc *goquery.Document, raw []byte, pageURL string) string {
	for _, sel := range mainSelectors {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return analysis.Normalize(innerText(s))
		}
	}

	parsed, _ := url.Parse(pageURL)
	if article, err := readability.FromReader(bytes.NewReader(raw), parsed); err == nil {
		if text := analysis.Normalize(article.TextContent); text != "" {
			return text
		}
	}
	return analysis.Normalize(innerText(doc.Find("body")))
}

// innerText joins the visible text nodes under s with spaces, so adjacent
// block elements do not run together.
func innerText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return b.String()
}

func metaContent(doc *goquery.Document, name string) string {
	v, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, name)).First().Attr("content")
	return strings.TrimSpace(v)
}

var (
	titleSeparators = regexp.MustCompile(`[\s\-|]+`)
	nonAlnumAnyCase = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// pageTags collects tags from meta keywords, title words and headings.
func pageTags(doc *goquery.Document, title, keywords string) []string {
	var tags []string
	seen := map[string]bool{}
	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	if keywords != "" {
		for _, k := range strings.Split(keywords, ",") {
			add(strings.ToLower(strings.TrimSpace(k)))
		}
	}
	for _, w := range titleSeparators.Split(title, -1) {
		if len([]rune(w)) > 3 {
			add(strings.ToLower(w))
		}
	}
	doc.Find("h1, h2, h3").Each(func(_ int, h *goquery.Selection) {
		for _, w := range strings.Fields(innerText(h)) {
			w = strings.ToLower(nonAlnumAnyCase.ReplaceAllString(w, ""))
			if len(w) > 3 {
				add(w)
			}
		}
	})

	if len(tags) > maxPageTags {
		tags = tags[:maxPageTags]
	}
	if tags == nil {
		return []string{}
	}
	return tags
}

// SaveRequest builds the request for saving p as a page capture. Auto
// captures are typed auto-page and flagged.
func (p *Page) SaveRequest(id string, now time.Time, auto bool) memory.SaveRequest {
	typ := storage.TypePage
	if auto {
		typ = storage.TypeAutoPage
	}
	meta := p.Metadata
	return memory.SaveRequest{
		ID:        id,
		Type:      typ,
		Content:   p.Content,
		URL:       p.URL,
		Title:     p.Title,
		Timestamp: storage.FormatTimestamp(now),
		Tags:      p.Tags,
		Category:  analysis.CategorizeContent(p.Content),
		Metadata:  &meta,
		Auto:      auto,
	}
}

// Selection builds the request for a text selection. context is the
// surrounding paragraph and is cut to 500 characters.
func Selection(id, text, context, pageURL, title string, now time.Time) memory.SaveRequest {
	text = strings.TrimSpace(text)
	tags := analysis.ExtractKeywords(text)
	if len(tags) > selectionTags {
		tags = tags[:selectionTags]
	}
	ctx := analysis.Normalize(context)
	if r := []rune(ctx); len(r) > maxContextLength {
		ctx = string(r[:maxContextLength])
	}
	return memory.SaveRequest{
		ID:        id,
		Type:      storage.TypeSelection,
		Content:   text,
		Context:   ctx,
		URL:       pageURL,
		Title:     title,
		Timestamp: storage.FormatTimestamp(now),
		Tags:      tags,
		Category:  analysis.CategorizeContent(text),
	}
}

// Note builds the request for a user-written note.
func Note(id, text, title string, tags []string, now time.Time) memory.SaveRequest {
	if tags == nil {
		tags = []string{}
	}
	return memory.SaveRequest{
		ID:        id,
		Type:      storage.TypeNote,
		Content:   strings.TrimSpace(text),
		Title:     title,
		Timestamp: storage.FormatTimestamp(now),
		Tags:      tags,
		Category:  analysis.CategorizeContent(text),
	}
}
