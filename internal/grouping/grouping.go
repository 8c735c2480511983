// Package grouping clusters candidates of one category that cover the same
// story. The pass is greedy and order dependent: an item joins the first
// open group whose anchor it resembles, and earlier decisions are never
// revisited.
package grouping

import (
	"log/slog"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/textnorm"
)

// Defaults for Options.
const (
	DefaultMinShared = 2
	DefaultCutoff    = 0.4
	DefaultMaxSize   = 4
)

// Options control when an item is considered the same story as an anchor.
type Options struct {
	// MinShared is the number of significant tokens that must be shared.
	MinShared int
	// Cutoff is the token-set Jaccard similarity that must be exceeded.
	Cutoff float64
	// MaxSize caps the number of items per group.
	MaxSize int
}

func (o Options) withDefaults() Options {
	if o.MinShared <= 0 {
		o.MinShared = DefaultMinShared
	}
	if o.Cutoff <= 0 {
		o.Cutoff = DefaultCutoff
	}
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	return o
}

type openGroup struct {
	group       news.SourceGroup
	tokens      map[string]struct{}
	significant map[string]struct{}
}

// Group partitions items by category and clusters each category in input
// order. Categories come out in order of first appearance, groups in order
// of creation.
func Group(items []news.CandidateItem, opts Options) []news.SourceGroup {
	opts = opts.withDefaults()

	var order []string
	byCategory := make(map[string][]*openGroup)

	for _, it := range items {
		groups, seen := byCategory[it.Category]
		if !seen {
			order = append(order, it.Category)
		}

		tokens := textnorm.TokenSet(it.Title)
		significant := textnorm.SignificantTokens(it.Title)

		placed := false
		for _, g := range groups {
			if len(g.group.Items) >= opts.MaxSize {
				continue
			}
			if sameStory(g, tokens, significant, opts) {
				g.group.Items = append(g.group.Items, it)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &openGroup{
				group:       news.SourceGroup{Category: it.Category, Items: []news.CandidateItem{it}},
				tokens:      tokens,
				significant: significant,
			})
		}
		byCategory[it.Category] = groups
	}

	var out []news.SourceGroup
	for _, cat := range order {
		for _, g := range byCategory[cat] {
			out = append(out, g.group)
		}
	}
	slog.Info("Grouping finished", "items", len(items), "groups", len(out), "categories", len(order))
	return out
}

// sameStory compares an item against the group anchor only.
func sameStory(g *openGroup, tokens, significant map[string]struct{}, opts Options) bool {
	if intersection(g.significant, significant) >= opts.MinShared {
		return true
	}
	return Jaccard(g.tokens, tokens) > opts.Cutoff
}

// Jaccard returns |a ∩ b| / |a ∪ b|, zero for two empty sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := intersection(a, b)
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func intersection(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if _, ok := b[t]; ok {
			n++
		}
	}
	return n
}
