// Package rss is the feed connector: RSS, Atom and JSON feeds via gofeed.
package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/source"
)

// Connector fetches and parses a feed endpoint.
type Connector struct {
	client *http.Client
}

// New returns a feed connector using client for every request.
func New(client *http.Client) *Connector {
	return &Connector{client: client}
}

// Fetch downloads cfg.Endpoint and maps the feed entries to candidates.
func (c *Connector) Fetch(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
	parser := gofeed.NewParser()
	parser.Client = c.client

	feed, err := parser.ParseURLWithContext(cfg.Endpoint, ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed %s: %w", cfg.Endpoint, err)
	}

	lang := cfg.Language
	if lang == "" {
		lang = feedLanguage(feed.Language)
	}

	items := make([]news.CandidateItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		ci := news.CandidateItem{
			Title:     it.Title,
			Snippet:   snippet(it),
			SourceURL: it.Link,
			ImageURL:  image(it),
			Language:  lang,
		}
		if it.PublishedParsed != nil {
			ci.PublishedAt = it.PublishedParsed.UTC()
		} else if it.UpdatedParsed != nil {
			ci.PublishedAt = it.UpdatedParsed.UTC()
		}
		items = append(items, ci)
	}
	return items, nil
}

func snippet(it *gofeed.Item) string {
	if it.Description != "" {
		return it.Description
	}
	return it.Content
}

// image picks the first usable picture: the item image, an image enclosure,
// then media:thumbnail or media:content.
func image(it *gofeed.Item) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if media, ok := it.Extensions["media"]; ok {
		for _, name := range []string{"thumbnail", "content"} {
			for _, ext := range media[name] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	return ""
}

// feedLanguage reduces "pt-BR" style tags to "pt".
func feedLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
