package capture

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultExcludedPrefixes are browser-internal URLs that are never
// captured automatically.
var DefaultExcludedPrefixes = []string{"chrome://", "chrome-extension://", "about:", "edge://"}

// DefaultMinContentLength is the shortest page text captured
// automatically.
const DefaultMinContentLength = 100

// AutoCapturePolicy decides whether a page is captured automatically.
type AutoCapturePolicy struct {
	Enabled          bool
	MinContentLength int
	ExcludedPrefixes []string
	// DenylistDomains match the host exactly or any of its subdomains.
	DenylistDomains []string
}

// Allow reports whether content from pageURL may be auto-captured. When it
// may not, reason says why.
func (p AutoCapturePolicy) Allow(pageURL, content string) (ok bool, reason string) {
	if !p.Enabled {
		return false, "auto capture disabled"
	}
	for _, prefix := range p.ExcludedPrefixes {
		if strings.HasPrefix(pageURL, prefix) {
			return false, fmt.Sprintf("excluded prefix %s", prefix)
		}
	}
	if domain := p.deniedDomain(pageURL); domain != "" {
		return false, fmt.Sprintf("denylisted domain %s", domain)
	}
	if n := len([]rune(content)); n < p.MinContentLength {
		return false, fmt.Sprintf("content too short (%d < %d)", n, p.MinContentLength)
	}
	return true, ""
}

func (p AutoCapturePolicy) deniedDomain(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	for _, d := range p.DenylistDomains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return d
		}
	}
	return ""
}
