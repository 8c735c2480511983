package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
)

// Guard dispatches a source to its connector and contains every failure.
// Fetch never panics and never returns a partial list: on any error the
// items are nil and the error is a *news.FetchError for accounting.
type Guard struct {
	connectors map[Kind]Connector
	now        func() time.Time
}

// NewGuard registers the connectors by kind.
func NewGuard(connectors map[Kind]Connector) *Guard {
	return &Guard{connectors: connectors, now: time.Now}
}

// WithClock replaces the fetch timestamp source.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Fetch runs the connector for cfg and normalizes what it returns.
func (g *Guard) Fetch(ctx context.Context, cfg Config) (items []news.CandidateItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Connector panicked", "source", cfg.Name, "panic", r)
			items = nil
			err = &news.FetchError{Source: cfg.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	conn, ok := g.connectors[cfg.Kind]
	if !ok {
		return nil, &news.FetchError{Source: cfg.Name, Err: fmt.Errorf("no connector for kind %q", cfg.Kind)}
	}

	fetchedAt := g.now()
	raw, ferr := conn.Fetch(ctx, cfg)
	if ferr != nil {
		slog.Warn("Source failed", "source", cfg.Name, "kind", cfg.Kind, "error", ferr)
		return nil, &news.FetchError{Source: cfg.Name, Err: ferr}
	}

	items = Normalize(raw, cfg, fetchedAt)
	slog.Info("Source fetched", "source", cfg.Name, "kind", cfg.Kind, "raw", len(raw), "kept", len(items))
	return items, nil
}
