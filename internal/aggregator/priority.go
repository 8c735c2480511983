package aggregator

import (
	"time"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/textnorm"
)

// Keyword adds Weight to the priority of any item mentioning Term.
type Keyword struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

type weightedTerm struct {
	term   textnorm.Term
	weight float64
}

// Scorer computes item priority as a recency bonus plus keyword weights.
type Scorer struct {
	window time.Duration
	bonus  float64
	terms  []weightedTerm
}

// NewScorer compiles the keyword list. Zero window or bonus fall back to
// 24h and 30 points.
func NewScorer(window time.Duration, bonus float64, keywords []Keyword) *Scorer {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if bonus <= 0 {
		bonus = 30
	}
	s := &Scorer{window: window, bonus: bonus}
	for _, k := range keywords {
		t := textnorm.CompileTerm(k.Term)
		s.terms = append(s.terms, weightedTerm{term: t, weight: k.Weight})
	}
	return s
}

// Score returns the priority of it at time now. The recency bonus decays
// linearly to zero over the window; every matching keyword adds its weight
// once.
func (s *Scorer) Score(it news.CandidateItem, now time.Time) float64 {
	var score float64

	age := now.Sub(it.PublishedAt)
	if age < 0 {
		age = 0
	}
	if age < s.window {
		score += s.bonus * (1 - float64(age)/float64(s.window))
	}

	text := textnorm.Normalize(it.Title + " " + it.Snippet)
	for _, wt := range s.terms {
		if wt.term.Match(text) {
			score += wt.weight
		}
	}
	return score
}
