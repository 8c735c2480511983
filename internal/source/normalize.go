package source

import (
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/textnorm"
)

// MaxSnippetRunes bounds the stored snippet.
const MaxSnippetRunes = 500

// Normalize cleans raw connector output: markup is stripped, links resolved
// against the endpoint, missing dates set to fetchedAt and untitled items
// dropped. Source defaults fill empty name, language and category.
func Normalize(raw []news.CandidateItem, cfg Config, fetchedAt time.Time) []news.CandidateItem {
	out := make([]news.CandidateItem, 0, len(raw))
	for _, it := range raw {
		it.Title = textnorm.StripMarkup(it.Title)
		if it.Title == "" {
			continue
		}
		it.Snippet = Truncate(textnorm.StripMarkup(it.Snippet), MaxSnippetRunes)
		it.SourceURL = ResolveURL(cfg.Endpoint, it.SourceURL)
		it.ImageURL = ResolveURL(cfg.Endpoint, it.ImageURL)

		// Feeds sometimes carry future timestamps; they would outrank everything.
		if it.PublishedAt.IsZero() || it.PublishedAt.After(fetchedAt) {
			it.PublishedAt = fetchedAt
		}
		it.FetchedAt = fetchedAt

		if it.SourceName == "" {
			it.SourceName = cfg.Name
		}
		if it.Language == "" {
			it.Language = strings.ToLower(cfg.Language)
		}
		if it.Category == "" {
			it.Category = cfg.Category
		}
		out = append(out, it)

		if cfg.MaxItems > 0 && len(out) >= cfg.MaxItems {
			break
		}
	}
	return out
}

// ResolveURL turns ref into an absolute URL relative to base. Protocol
// relative refs ("//cdn...") take the base scheme. Unparseable refs are
// returned trimmed.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return ref
	}
	return b.ResolveReference(r).String()
}

// Truncate cuts s to at most n runes on a word boundary, adding "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}

var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"02.01.2006 15:04",
	"02.01.2006",
	"January 2, 2006",
	"2 January 2006",
}

// ParseTime tries the date layouts common on news sites. It returns the
// zero time when nothing matches, which Normalize turns into fetch time.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
