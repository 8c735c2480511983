package publish

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gorilla/feeds"

	"github.com/deusflow/newsdesk/internal/storage"
)

const feedItems = 50

// writeFeed renders the newest index entries as RSS 2.0.
func (p *Publisher) writeFeed(idx Index) error {
	site := strings.TrimRight(p.opts.SiteURL, "/")

	feed := &feeds.Feed{
		Title:       p.opts.SiteTitle,
		Link:        &feeds.Link{Href: site + "/"},
		Description: p.opts.SiteDescription,
		Created:     idx.UpdatedAt,
		Updated:     idx.UpdatedAt,
	}

	for i, a := range idx.Articles {
		if i == feedItems {
			break
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          a.ID,
			Title:       a.Title,
			Link:        &feeds.Link{Href: site + a.URL},
			Description: a.Excerpt,
			Created:     a.PublishedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		return fmt.Errorf("render feed: %w", err)
	}
	return storage.WriteFileAtomic(filepath.Join(p.opts.Dir, "feed.xml"), []byte(rss))
}
