package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/langdetect"
	"github.com/deusflow/newsdesk/internal/ratelimit"
	"github.com/deusflow/newsdesk/internal/rss"
	"github.com/deusflow/newsdesk/internal/scraper"
	"github.com/deusflow/newsdesk/internal/searchapi"
	"github.com/deusflow/newsdesk/internal/source"
	"github.com/deusflow/newsdesk/internal/telegram"
	"github.com/deusflow/newsdesk/internal/transform"
)

// Setup builds the production pipeline from cfg. The returned close
// function releases the title store and provider clients.
func Setup(ctx context.Context, cfg *config.Config, catalog *config.Catalog) (*Pipeline, func() error, error) {
	limiter := ratelimit.NewDomainLimiter(cfg.DomainInterval)
	client := ratelimit.NewHTTPClient(limiter, cfg.UserAgent)

	scrape := scraper.New(client)
	guard := source.NewGuard(map[source.Kind]source.Connector{
		source.KindFeed:      rss.New(client),
		source.KindScrape:    scrape,
		source.KindSearchAPI: searchapi.New(client),
	})

	titles, err := openTitleStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	provider, closeProvider, err := newTransformer(ctx, cfg)
	if err != nil {
		titles.Close()
		return nil, nil, err
	}

	deps := Deps{
		Fetcher:     guard,
		Detector:    langdetect.New(cfg.Languages, ""),
		Transformer: provider,
		Titles:      titles,
	}
	if n := telegram.New(cfg.TelegramToken, cfg.TelegramChatID, cfg.SiteURL); n != nil {
		deps.Announcer = n
	}
	if cfg.EnrichArticles {
		deps.Enricher = scrape
	}

	closeAll := func() error {
		return errors.Join(closeProvider(), titles.Close())
	}
	return NewPipeline(cfg, catalog, deps), closeAll, nil
}

func newTransformer(ctx context.Context, cfg *config.Config) (transform.Transformer, func() error, error) {
	noop := func() error { return nil }
	switch cfg.TransformProvider {
	case config.ProviderGemini:
		g, err := transform.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("can't create gemini transformer: %w", err)
		}
		slog.Info("Using Gemini transformer")
		return g, g.Close, nil
	case config.ProviderOpenAI:
		slog.Info("Using OpenAI transformer")
		return transform.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), noop, nil
	default:
		slog.Info("Using extractive transformer")
		return transform.Extractive{}, noop, nil
	}
}
