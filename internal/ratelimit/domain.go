package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDomainInterval is the minimum spacing between requests to one host.
const DefaultDomainInterval = 2 * time.Second

// DomainLimiter spaces requests per host with one token bucket per key.
// A single instance is shared by every connector so two sources on the
// same domain never hit it faster than the interval.
type DomainLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*domainBucket
}

type domainBucket struct {
	limiter *rate.Limiter
	retryAt time.Time
}

// NewDomainLimiter creates a limiter that allows one request per interval per host.
func NewDomainLimiter(interval time.Duration) *DomainLimiter {
	if interval <= 0 {
		interval = DefaultDomainInterval
	}
	return &DomainLimiter{
		interval: interval,
		limiters: make(map[string]*domainBucket),
	}
}

func (d *DomainLimiter) bucket(key string) *domainBucket {
	key = strings.ToLower(strings.TrimPrefix(key, "www."))

	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.limiters[key]
	if !ok {
		b = &domainBucket{limiter: rate.NewLimiter(rate.Every(d.interval), 1)}
		d.limiters[key] = b
	}
	return b
}

// Wait blocks until a request to key is allowed or ctx is done.
func (d *DomainLimiter) Wait(ctx context.Context, key string) error {
	b := d.bucket(key)

	d.mu.Lock()
	retryAt := b.retryAt
	d.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return b.limiter.Wait(ctx)
}

// Backoff holds every later request to key until after has elapsed.
// Used when a host answers 429.
func (d *DomainLimiter) Backoff(key string, after time.Duration) {
	if after <= 0 {
		after = 60 * time.Second
	}
	b := d.bucket(key)

	d.mu.Lock()
	defer d.mu.Unlock()
	if until := time.Now().Add(after); until.After(b.retryAt) {
		b.retryAt = until
	}
}

// Hosts returns the number of hosts seen so far.
func (d *DomainLimiter) Hosts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.limiters)
}
