package transform

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/ratelimit"
	"github.com/deusflow/newsdesk/internal/retry"
)

// DefaultSpacing is the minimum gap between two provider calls.
const DefaultSpacing = 3 * time.Second

// Gate wraps a provider with call spacing, a call budget, retries of
// transient failures and output validation. Calls are expected to be
// sequential; the spacing holds even if they are not.
type Gate struct {
	next    Transformer
	spacing *rate.Limiter
	quota   *ratelimit.Quota
	retry   retry.RetryConfig
}

// NewGate wraps next. A nil quota means unlimited.
func NewGate(next Transformer, spacing time.Duration, quota *ratelimit.Quota, retryCfg retry.RetryConfig) *Gate {
	if spacing <= 0 {
		spacing = DefaultSpacing
	}
	if quota == nil {
		quota = ratelimit.NewQuota(0)
	}
	return &Gate{
		next:    next,
		spacing: rate.NewLimiter(rate.Every(spacing), 1),
		quota:   quota,
		retry:   retryCfg,
	}
}

// Name implements Transformer.
func (g *Gate) Name() string { return g.next.Name() }

// Transform calls the provider. Budget exhaustion, local or upstream,
// comes back as *news.QuotaExceededError; every other failure as
// *news.TransformError.
func (g *Gate) Transform(ctx context.Context, req Request) (*Output, error) {
	anchor := req.Group.Anchor().Title
	var out *Output

	err := retry.WithRetry(ctx, g.retry, func() error {
		if err := g.quota.Use(g.next.Name()); err != nil {
			return retry.Permanent(err)
		}
		if err := g.spacing.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		start := time.Now()
		res, err := g.next.Transform(ctx, req)
		if err != nil {
			if news.IsQuota(err) {
				g.quota.Exhaust()
				return retry.Permanent(err)
			}
			slog.Warn("Transform attempt failed", "provider", g.next.Name(), "anchor", anchor, "error", err)
			return err
		}
		if err := validate(res, req); err != nil {
			return retry.Permanent(err)
		}

		slog.Debug("Transform done", "provider", g.next.Name(), "anchor", anchor, "took", time.Since(start))
		out = res
		return nil
	})
	if err != nil {
		if news.IsQuota(err) {
			return nil, err
		}
		return nil, &news.TransformError{Anchor: anchor, Err: err}
	}
	return out, nil
}

// Quota exposes the budget for reporting.
func (g *Gate) Quota() *ratelimit.Quota { return g.quota }
