package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/source"
)

// Generic selectors used when a source does not configure its own.
var defaults = source.Selectors{
	Item:    "article",
	Title:   "h1, h2, h3, .title, .headline",
	Link:    "a[href]",
	Snippet: "p, .summary, .excerpt",
	Image:   "img",
	Date:    "time",
}

// Connector scrapes story listings from HTML pages.
type Connector struct {
	client *http.Client
}

// New returns a scrape connector using client for every request.
func New(client *http.Client) *Connector {
	return &Connector{client: client}
}

// Fetch loads cfg.Endpoint and extracts one candidate per item element.
func (c *Connector) Fetch(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
	doc, err := c.load(ctx, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	sel := withDefaults(cfg.Selectors)
	var items []news.CandidateItem
	doc.Find(sel.Item).Each(func(i int, s *goquery.Selection) {
		if it, ok := extractItem(s, sel); ok {
			items = append(items, it)
		}
	})

	// Listing pages without <article> wrappers: fall back to headline links.
	if len(items) == 0 && cfg.Selectors.Item == "" {
		doc.Find("h2 a[href], h3 a[href]").Each(func(i int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			title := strings.TrimSpace(s.Text())
			if title == "" || href == "" {
				return
			}
			items = append(items, news.CandidateItem{Title: title, SourceURL: href})
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no items matched selector %q", sel.Item)
	}
	slog.Debug("Scraped listing", "source", cfg.Name, "items", len(items))
	return items, nil
}

func (c *Connector) load(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	return doc, nil
}

func withDefaults(s source.Selectors) source.Selectors {
	if s.Item == "" {
		s.Item = defaults.Item
	}
	if s.Title == "" {
		s.Title = defaults.Title
	}
	if s.Link == "" {
		s.Link = defaults.Link
	}
	if s.Snippet == "" {
		s.Snippet = defaults.Snippet
	}
	if s.Image == "" {
		s.Image = defaults.Image
	}
	if s.Date == "" {
		s.Date = defaults.Date
	}
	return s
}

func extractItem(s *goquery.Selection, sel source.Selectors) (news.CandidateItem, bool) {
	titleSel := s.Find(sel.Title).First()
	title := strings.TrimSpace(titleSel.Text())
	if title == "" {
		return news.CandidateItem{}, false
	}

	link := ""
	if s.Is("a") {
		link, _ = s.Attr("href")
	}
	if link == "" {
		link, _ = titleSel.Find("a[href]").First().Attr("href")
	}
	if link == "" {
		link, _ = s.Find(sel.Link).First().Attr("href")
	}

	it := news.CandidateItem{
		Title:     title,
		SourceURL: link,
		Snippet:   cleanContent(s.Find(sel.Snippet).First().Text()),
		ImageURL:  imageURL(s.Find(sel.Image).First()),
	}

	dateSel := s.Find(sel.Date).First()
	if dt, ok := dateSel.Attr("datetime"); ok {
		it.PublishedAt = source.ParseTime(dt)
	}
	if it.PublishedAt.IsZero() {
		it.PublishedAt = source.ParseTime(dateSel.Text())
	}
	return it, true
}

// imageURL prefers lazy-load attributes over the placeholder src.
func imageURL(img *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-original", "src"} {
		if v, ok := img.Attr(attr); ok && v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return ""
}

// Boilerplate that leaks into listing teasers.
var junkPhrases = []string{
	"Leia mais", "Saiba mais", "Read more", "Continue reading",
	"Læs også:", "Læs mere på", "Se também:", "Publicidade", "Advertisement",
}

// cleanContent removes boilerplate phrases and collapses whitespace.
func cleanContent(content string) string {
	for _, phrase := range junkPhrases {
		content = strings.ReplaceAll(content, phrase, "")
	}
	return strings.Join(strings.Fields(content), " ")
}
