// Package classify assigns each candidate exactly one category from an
// ordered rule list.
package classify

import (
	"log/slog"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/textnorm"
)

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type compiledRule struct {
	category string
	terms    []textnorm.Term
}

// Classifier evaluates rules in order; the first match wins.
type Classifier struct {
	rules    []compiledRule
	known    map[string]bool
	exclude  []textnorm.Term
	fallback string
}

// New compiles rules, exclusions and the default category.
func New(rules []Rule, exclude []string, fallback string) *Classifier {
	c := &Classifier{
		known:    map[string]bool{fallback: true},
		exclude:  textnorm.CompileTerms(exclude),
		fallback: fallback,
	}
	for _, r := range rules {
		c.rules = append(c.rules, compiledRule{category: r.Category, terms: textnorm.CompileTerms(r.Keywords)})
		c.known[r.Category] = true
	}
	return c
}

// Excluded reports whether the item mentions an excluded keyword.
func (c *Classifier) Excluded(it news.CandidateItem) bool {
	return textnorm.MatchAny(matchText(it), c.exclude)
}

// Category returns the category for it. A category preset by the source is
// kept when it is one the classifier knows.
func (c *Classifier) Category(it news.CandidateItem) string {
	if it.Category != "" && c.known[it.Category] {
		return it.Category
	}
	text := matchText(it)
	for _, r := range c.rules {
		if textnorm.MatchAny(text, r.terms) {
			return r.category
		}
	}
	return c.fallback
}

// Apply drops excluded items and categorizes the rest. It returns the
// survivors in input order and the number excluded.
func (c *Classifier) Apply(items []news.CandidateItem) ([]news.CandidateItem, int) {
	out := make([]news.CandidateItem, 0, len(items))
	excluded := 0
	for _, it := range items {
		if c.Excluded(it) {
			excluded++
			slog.Debug("Item excluded", "title", it.Title, "source", it.SourceName)
			continue
		}
		it.Category = c.Category(it)
		out = append(out, it)
	}
	slog.Info("Classification finished", "kept", len(out), "excluded", excluded)
	return out, excluded
}

func matchText(it news.CandidateItem) string {
	return textnorm.Normalize(it.Title + " " + it.Snippet)
}
