package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/source"
)

type fakeFetcher struct {
	fn func(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error)
}

func (f fakeFetcher) Fetch(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
	return f.fn(ctx, cfg)
}

type stubDetector string

func (s stubDetector) Detect(string) string { return string(s) }

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestCollectSurvivesTimeouts(t *testing.T) {
	hang := make(chan struct{})
	defer close(hang)

	fetcher := fakeFetcher{fn: func(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
		switch cfg.Name {
		case "slow-honest":
			<-ctx.Done()
			return nil, ctx.Err()
		case "slow-stuck":
			<-hang
			return nil, nil
		}
		// Finish in reverse order to prove the merge is deterministic.
		if cfg.Name == "a" {
			time.Sleep(30 * time.Millisecond)
		}
		return []news.CandidateItem{{Title: cfg.Name + " story", SourceURL: "https://" + cfg.Name + ".example/1", PublishedAt: now}}, nil
	}}

	agg := New(fetcher, Options{Workers: 5, Timeout: 100 * time.Millisecond, Now: func() time.Time { return now }})
	sources := []source.Config{{Name: "a"}, {Name: "slow-honest"}, {Name: "b"}, {Name: "slow-stuck"}, {Name: "c"}}

	start := time.Now()
	res := agg.Collect(context.Background(), sources)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, res.Items, 3)
	assert.Equal(t, "a story", res.Items[0].Title)
	assert.Equal(t, "b story", res.Items[1].Title)
	assert.Equal(t, "c story", res.Items[2].Title)

	assert.ElementsMatch(t, []string{"slow-honest", "slow-stuck"}, res.Failed)
	for _, err := range res.Errors {
		var fe *news.FetchError
		require.ErrorAs(t, err, &fe)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestCollectRunDeadlineKeepsFinishedSources(t *testing.T) {
	fetcher := fakeFetcher{fn: func(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
		if cfg.Name != "fast" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []news.CandidateItem{{Title: "fast story", SourceURL: "https://fast.example/1", PublishedAt: now}}, nil
	}}

	// Per-source timeout is generous; only the run deadline can stop the others.
	agg := New(fetcher, Options{Workers: 3, Timeout: 5 * time.Second, Now: func() time.Time { return now }})
	sources := []source.Config{{Name: "fast"}, {Name: "slow"}, {Name: "queued"}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := agg.Collect(ctx, sources)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, res.Items, 1)
	assert.Equal(t, "fast story", res.Items[0].Title)
	assert.Equal(t, []string{"slow", "queued"}, res.Failed)
	for _, err := range res.Errors {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestCollectBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	fetcher := fakeFetcher{fn: func(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil, nil
	}}

	var sources []source.Config
	for i := 0; i < 8; i++ {
		sources = append(sources, source.Config{Name: string(rune('a' + i))})
	}

	New(fetcher, Options{Workers: 2}).Collect(context.Background(), sources)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestCollectSkipsDisabledAndWrapsErrors(t *testing.T) {
	var mu sync.Mutex
	var called []string
	fetcher := fakeFetcher{fn: func(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
		mu.Lock()
		called = append(called, cfg.Name)
		mu.Unlock()
		if cfg.Name == "bad" {
			return nil, errors.New("boom")
		}
		return nil, nil
	}}

	res := New(fetcher, Options{}).Collect(context.Background(), []source.Config{
		{Name: "off", Disabled: true}, {Name: "bad"},
	})

	assert.Equal(t, []string{"bad"}, called)
	require.Len(t, res.Errors, 1)
	var fe *news.FetchError
	require.ErrorAs(t, res.Errors[0], &fe)
	assert.Equal(t, "bad", fe.Source)
}

func TestCollectDedupesURLsAndTagsLanguage(t *testing.T) {
	fetcher := fakeFetcher{fn: func(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
		return []news.CandidateItem{
			{Title: "Same story", SourceURL: "https://x.example/1"},
			{Title: "Tagged", SourceURL: "https://x.example/2", Language: "en"},
		}, nil
	}}

	res := New(fetcher, Options{Detector: stubDetector("pt")}).Collect(context.Background(), []source.Config{{Name: "one"}, {Name: "two"}})

	require.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, "pt", res.Items[0].Language)
	assert.Equal(t, "en", res.Items[1].Language)
}

func TestScorer(t *testing.T) {
	s := NewScorer(24*time.Hour, 30, []Keyword{{Term: "eleição", Weight: 10}, {Term: "urgente", Weight: 5}})

	tests := []struct {
		name string
		item news.CandidateItem
		want float64
	}{
		{"fresh no keywords", news.CandidateItem{Title: "Chuva em Recife", PublishedAt: now}, 30},
		{"half window", news.CandidateItem{Title: "Chuva", PublishedAt: now.Add(-12 * time.Hour)}, 15},
		{"stale", news.CandidateItem{Title: "Chuva", PublishedAt: now.Add(-48 * time.Hour)}, 0},
		{"future clamps", news.CandidateItem{Title: "Chuva", PublishedAt: now.Add(time.Hour)}, 30},
		{"keywords add", news.CandidateItem{Title: "URGENTE: Eleição", Snippet: "apuração", PublishedAt: now.Add(-48 * time.Hour)}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.item, now), 0.001)
		})
	}
}
