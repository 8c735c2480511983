// Package publish writes article records and maintains the bounded,
// newest-first publication index with its category and language shards.
//
// Layout under the data directory:
//
//	index.json
//	feed.xml
//	articles/<lang>/<category>/<slug>.json
//	shards/category/<category>.json
//	shards/language/<lang>.json
//
// A single writer is assumed; every file is replaced atomically.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gosimple/slug"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/storage"
)

// Defaults for Options.
const (
	DefaultIndexLimit = 200
	DefaultShardLimit = 50
	maxSlugLen        = 80
)

// Options configure where and how much is published.
type Options struct {
	Dir             string
	IndexLimit      int
	ShardLimit      int
	SiteURL         string
	SiteTitle       string
	SiteDescription string
	Now             func() time.Time
}

// Publisher owns the index for the duration of a run.
type Publisher struct {
	opts  Options
	index Index
}

// New creates a publisher. Call Load before Publish.
func New(opts Options) *Publisher {
	if opts.IndexLimit <= 0 {
		opts.IndexLimit = DefaultIndexLimit
	}
	if opts.ShardLimit <= 0 {
		opts.ShardLimit = DefaultShardLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SiteTitle == "" {
		opts.SiteTitle = "newsdesk"
	}
	return &Publisher{opts: opts, index: Index{Version: IndexVersion}}
}

func (p *Publisher) indexPath() string {
	return filepath.Join(p.opts.Dir, "index.json")
}

// Load reads the current index. Corruption is logged and returned, and the
// publisher continues from an empty index.
func (p *Publisher) Load() error {
	idx, err := ReadIndex(p.indexPath())
	if len(idx.Articles) > p.opts.IndexLimit {
		idx.Articles = idx.Articles[:p.opts.IndexLimit]
	}
	p.index = idx
	if err != nil {
		slog.Warn("Publication index unreadable, rebuilding from empty", "path", p.indexPath(), "error", err)
		return err
	}
	slog.Info("Publication index loaded", "articles", len(idx.Articles))
	return nil
}

// Index returns the in-memory index.
func (p *Publisher) Index() Index {
	return p.index
}

// Publish stamps, names and persists draft, then rewrites the index, the
// shards and the feed. The detail record is written first; a failed index
// write returns *news.IndexWriteError and leaves the in-memory index as it
// was.
func (p *Publisher) Publish(ctx context.Context, draft news.PublishedArticle) (news.PublishedArticle, error) {
	if err := ctx.Err(); err != nil {
		return news.PublishedArticle{}, err
	}

	a := draft
	if a.Language == "" {
		a.Language = "und"
	}
	a.Language = pathSegment(a.Language, "und")
	a.Category = pathSegment(a.Category, "general")
	a.PublishedAt = p.stamp()
	a.Slug = p.uniqueSlug(a)
	a.ID = a.Slug
	a.URL = fmt.Sprintf("/%s/%s/%s.html", a.Language, a.Category, a.Slug)

	if err := storage.WriteJSONAtomic(p.detailPath(a.Language, a.Category, a.Slug), a); err != nil {
		return news.PublishedArticle{}, fmt.Errorf("write article %s: %w", a.Slug, err)
	}

	next := p.index.prepend(a, p.opts.IndexLimit, a.PublishedAt)
	if err := storage.WriteJSONAtomic(p.indexPath(), next); err != nil {
		return news.PublishedArticle{}, &news.IndexWriteError{Path: p.indexPath(), Err: err}
	}
	p.index = next

	if err := p.writeDerived(next); err != nil {
		return a, &news.IndexWriteError{Path: p.opts.Dir, Err: err}
	}

	slog.Info("Article published", "id", a.ID, "category", a.Category, "language", a.Language, "index_size", len(next.Articles))
	return a, nil
}

func (p *Publisher) writeDerived(idx Index) error {
	if err := p.writeShards(idx, shardCategory, func(a news.PublishedArticle) string { return a.Category }); err != nil {
		return err
	}
	if err := p.writeShards(idx, shardLanguage, func(a news.PublishedArticle) string { return a.Language }); err != nil {
		return err
	}
	return p.writeFeed(idx)
}

// stamp returns the publish time, nudged forward so the index stays
// strictly ordered even when two articles land in the same clock tick.
func (p *Publisher) stamp() time.Time {
	t := p.opts.Now().UTC()
	if len(p.index.Articles) > 0 {
		head := p.index.Articles[0].PublishedAt
		if !t.After(head) {
			t = head.Add(time.Millisecond)
		}
	}
	return t
}

func (p *Publisher) detailPath(lang, category, s string) string {
	return filepath.Join(p.opts.Dir, "articles", lang, category, s+".json")
}

// uniqueSlug derives the slug from the title and appends -2, -3, ... while
// it collides with an indexed article or an existing detail record.
func (p *Publisher) uniqueSlug(a news.PublishedArticle) string {
	base := slug.Make(a.Title)
	if len(base) > maxSlugLen {
		base = base[:maxSlugLen]
	}
	if base == "" {
		base = "article"
	}

	taken := make(map[string]bool, len(p.index.Articles))
	for _, existing := range p.index.Articles {
		taken[existing.ID] = true
	}

	candidate := base
	for n := 2; ; n++ {
		if !taken[candidate] && !exists(p.detailPath(a.Language, a.Category, candidate)) {
			return candidate
		}
		if n > 1000 {
			return fmt.Sprintf("%s-%d", base, p.opts.Now().UnixNano())
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

func pathSegment(s, fallback string) string {
	if v := slug.Make(s); v != "" {
		return v
	}
	return fallback
}
