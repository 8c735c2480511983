// Package dedup rejects groups whose story was already published, using a
// bounded FIFO memory of normalized titles and an edit-distance ratio.
package dedup

import (
	"context"
	"errors"
	"log/slog"

	"github.com/agnivade/levenshtein"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/storage"
	"github.com/deusflow/newsdesk/internal/textnorm"
)

// Defaults for the titles-seen memory.
const (
	DefaultLimit     = 1000
	DefaultThreshold = 0.75
)

// Deduplicator holds the titles-seen list for one run.
type Deduplicator struct {
	store     storage.TitleStore
	limit     int
	threshold float64

	titles   []string
	reserved []string
}

// New creates a deduplicator persisting to store. The list is bounded by
// limit and titles more similar than threshold are duplicates.
func New(store storage.TitleStore, limit int, threshold float64) *Deduplicator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Deduplicator{store: store, limit: limit, threshold: threshold}
}

// Load reads the persisted list. Missing or corrupt state leaves the
// memory empty; the corruption error is returned for reporting only and
// the deduplicator stays usable.
func (d *Deduplicator) Load(ctx context.Context) error {
	titles, err := d.store.Load(ctx)
	if err != nil {
		d.titles = nil
		var ce *news.IndexCorruptError
		if !errors.As(err, &ce) {
			err = &news.IndexCorruptError{Path: d.store.Name(), Err: err}
		}
		slog.Warn("Titles-seen state unreadable, starting empty", "store", d.store.Name(), "error", err)
		return err
	}

	d.titles = make([]string, 0, len(titles))
	for _, t := range titles {
		if key := textnorm.Normalize(t); key != "" {
			d.titles = append(d.titles, key)
		}
	}
	if len(d.titles) > d.limit {
		d.titles = d.titles[:d.limit]
	}
	slog.Info("Titles-seen loaded", "store", d.store.Name(), "titles", len(d.titles))
	return nil
}

// Similarity is (maxLen - editDistance) / maxLen over runes. Two empty
// strings are identical.
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-dist) / float64(maxLen)
}

// IsDuplicate reports whether title matches a stored title.
func (d *Deduplicator) IsDuplicate(title string) bool {
	return d.matches(textnorm.Normalize(title), d.titles)
}

func (d *Deduplicator) matches(key string, list []string) bool {
	if key == "" {
		return false
	}
	for _, t := range list {
		if Similarity(key, t) > d.threshold {
			return true
		}
	}
	return false
}

func (d *Deduplicator) seen(key string) bool {
	return d.matches(key, d.titles) || d.matches(key, d.reserved)
}

// Filter drops groups whose anchor duplicates a stored title or an anchor
// accepted earlier in this pass. Non-anchor members that duplicate are
// pruned from surviving groups. It returns the survivors and the number of
// rejected groups.
func (d *Deduplicator) Filter(groups []news.SourceGroup) ([]news.SourceGroup, int) {
	var kept []news.SourceGroup
	rejected := 0

	for _, g := range groups {
		if len(g.Items) == 0 {
			continue
		}
		anchorKey := textnorm.Normalize(g.Items[0].Title)
		if d.seen(anchorKey) {
			rejected++
			slog.Debug("Group rejected as duplicate", "anchor", g.Items[0].Title, "category", g.Category)
			continue
		}

		members := []news.CandidateItem{g.Items[0]}
		for _, it := range g.Items[1:] {
			if d.seen(textnorm.Normalize(it.Title)) {
				continue
			}
			members = append(members, it)
		}
		g.Items = members

		d.reserved = append(d.reserved, anchorKey)
		kept = append(kept, g)
	}

	slog.Info("Deduplication finished", "groups", len(groups), "kept", len(kept), "rejected", rejected)
	return kept, rejected
}

// Remember records published titles as newest, evicting the oldest past
// the limit.
func (d *Deduplicator) Remember(titles ...string) {
	for _, t := range titles {
		key := textnorm.Normalize(t)
		if key == "" {
			continue
		}
		next := make([]string, 0, len(d.titles)+1)
		next = append(next, key)
		for _, existing := range d.titles {
			if existing != key {
				next = append(next, existing)
			}
		}
		if len(next) > d.limit {
			next = next[:d.limit]
		}
		d.titles = next
	}
}

// Titles returns the current memory, newest first.
func (d *Deduplicator) Titles() []string {
	out := make([]string, len(d.titles))
	copy(out, d.titles)
	return out
}

// Save persists the memory.
func (d *Deduplicator) Save(ctx context.Context) error {
	return d.store.Save(ctx, d.titles)
}
