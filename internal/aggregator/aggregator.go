// Package aggregator fans out over the configured sources with a bounded
// worker pool and merges what comes back into one prioritized list.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/source"
)

// Fetcher is satisfied by source.Guard.
type Fetcher interface {
	Fetch(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error)
}

// LanguageDetector fills Language on items whose source did not set one.
type LanguageDetector interface {
	Detect(text string) string
}

// Options tune the pool and the priority score.
type Options struct {
	Workers       int
	Timeout       time.Duration
	RecencyWindow time.Duration
	RecencyBonus  float64
	Keywords      []Keyword
	Detector      LanguageDetector
	Now           func() time.Time
}

// Result is the merged output of one collection pass.
type Result struct {
	Items  []news.CandidateItem
	Failed []string
	Errors []error
	// Duplicates counts items dropped because their URL was already seen.
	Duplicates int
}

// Aggregator runs every source concurrently.
type Aggregator struct {
	fetcher Fetcher
	opts    Options
	scorer  *Scorer
}

// New returns an Aggregator with defaults filled in.
func New(fetcher Fetcher, opts Options) *Aggregator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		fetcher: fetcher,
		opts:    opts,
		scorer:  NewScorer(opts.RecencyWindow, opts.RecencyBonus, opts.Keywords),
	}
}

type slot struct {
	items []news.CandidateItem
	err   error
}

// Collect fetches all enabled sources. One slow or failing source never
// affects the others; a cancelled ctx abandons in-flight fetches and keeps
// what already finished.
func (a *Aggregator) Collect(ctx context.Context, sources []source.Config) Result {
	slots := make([]slot, len(sources))
	sem := make(chan struct{}, a.opts.Workers)
	var wg sync.WaitGroup

	for i, src := range sources {
		if src.Disabled {
			continue
		}
		wg.Add(1)
		go func(i int, src source.Config) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				slots[i].err = &news.FetchError{Source: src.Name, Err: ctx.Err()}
				return
			}
			defer func() { <-sem }()
			slots[i] = a.fetchOne(ctx, src)
		}(i, src)
	}
	wg.Wait()

	return a.merge(sources, slots)
}

// fetchOne bounds a single source by its timeout. A connector that ignores
// its context is abandoned at the deadline.
func (a *Aggregator) fetchOne(ctx context.Context, src source.Config) slot {
	timeout := src.Timeout
	if timeout <= 0 {
		timeout = a.opts.Timeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan slot, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- slot{err: &news.FetchError{Source: src.Name, Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		items, err := a.fetcher.Fetch(cctx, src)
		done <- slot{items: items, err: err}
	}()

	select {
	case s := <-done:
		return s
	case <-cctx.Done():
		slog.Warn("Source abandoned", "source", src.Name, "timeout", timeout, "error", cctx.Err())
		return slot{err: &news.FetchError{Source: src.Name, Err: cctx.Err()}}
	}
}

// merge concatenates in configured source order so the run is reproducible
// regardless of which worker finished first.
func (a *Aggregator) merge(sources []source.Config, slots []slot) Result {
	var res Result
	seen := make(map[string]bool)
	now := a.opts.Now()

	for i, s := range slots {
		if sources[i].Disabled {
			continue
		}
		if s.err != nil {
			var fe *news.FetchError
			if !errors.As(s.err, &fe) {
				s.err = &news.FetchError{Source: sources[i].Name, Err: s.err}
			}
			res.Failed = append(res.Failed, sources[i].Name)
			res.Errors = append(res.Errors, s.err)
			continue
		}
		for _, it := range s.items {
			if it.SourceURL != "" {
				if seen[it.SourceURL] {
					res.Duplicates++
					continue
				}
				seen[it.SourceURL] = true
			}
			if it.Language == "" && a.opts.Detector != nil {
				it.Language = a.opts.Detector.Detect(it.Title + ". " + it.Snippet)
			}
			it.Priority = a.scorer.Score(it, now)
			res.Items = append(res.Items, it)
		}
	}

	slog.Info("Collection finished",
		"sources", len(sources),
		"failed", len(res.Failed),
		"items", len(res.Items),
		"url_duplicates", res.Duplicates)
	return res
}
