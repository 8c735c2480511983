package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DefaultUserAgent identifies the aggregator to upstream sites.
const DefaultUserAgent = "newsdesk/1.0 (+https://github.com/deusflow/newsdesk)"

// Transport is an http.RoundTripper that waits on the shared DomainLimiter
// before every request, whichever connector issues it.
type Transport struct {
	Base      http.RoundTripper
	Limiter   *DomainLimiter
	UserAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Hostname()
	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context(), host); err != nil {
			return nil, err
		}
	}

	if t.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests && t.Limiter != nil {
		after := retryAfter(resp.Header.Get("Retry-After"))
		slog.Warn("Host rate limited us, backing off", "host", host, "retry_after", after)
		t.Limiter.Backoff(host, after)
	}
	return resp, nil
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

// NewHTTPClient builds the client shared by all connectors. Deadlines come
// from the request context, so no client timeout is set.
func NewHTTPClient(limiter *DomainLimiter, userAgent string) *http.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &http.Client{
		Transport: &Transport{
			Base:      http.DefaultTransport,
			Limiter:   limiter,
			UserAgent: userAgent,
		},
	}
}
