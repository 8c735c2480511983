// Package ratelimit holds the per-domain request limiter shared by the
// connectors and the call budget for content generation.
package ratelimit

import (
	"log/slog"
	"sync"

	"github.com/deusflow/newsdesk/internal/news"
)

// Quota tracks content generation calls per provider against a per-run budget.
type Quota struct {
	mu        sync.Mutex
	counts    map[string]int
	total     int
	maxTotal  int
	exhausted bool
}

// NewQuota creates a budget of maxTotal calls. Zero means unlimited.
func NewQuota(maxTotal int) *Quota {
	return &Quota{
		counts:   make(map[string]int),
		maxTotal: maxTotal,
	}
}

// CanUse reports whether another call fits the budget.
func (q *Quota) CanUse() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.canUse()
}

func (q *Quota) canUse() bool {
	if q.exhausted {
		return false
	}
	return q.maxTotal <= 0 || q.total < q.maxTotal
}

// Use records one call to provider, or returns a QuotaExceededError.
func (q *Quota) Use(provider string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.canUse() {
		return &news.QuotaExceededError{Limit: q.maxTotal, Used: q.total}
	}

	q.counts[provider]++
	q.total++
	slog.Debug("Transform quota used", "provider", provider, "used", q.total, "limit", q.maxTotal)
	return nil
}

// Exhaust marks the budget spent, e.g. after the provider answered 429.
func (q *Quota) Exhaust() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.exhausted {
		slog.Warn("Transform quota exhausted upstream", "used", q.total)
	}
	q.exhausted = true
}

// Used returns the number of calls made.
func (q *Quota) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}

// GetStats returns the current usage per provider.
func (q *Quota) GetStats() map[string]interface{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := map[string]interface{}{
		"total_used":  q.total,
		"total_limit": q.maxTotal,
		"exhausted":   q.exhausted,
	}
	for p, c := range q.counts {
		stats[p+"_used"] = c
	}
	return stats
}
