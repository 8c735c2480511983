package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/storage"
)

// openTitleStore picks the titles-seen backend. Postgres is used when
// configured; the file store is the default for single-host runs.
func openTitleStore(ctx context.Context, cfg *config.Config) (storage.TitleStore, error) {
	switch cfg.TitlesStore {
	case config.StorePostgres:
		store, err := storage.NewPostgresTitles(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("can't open postgres titles store: %w", err)
		}
		slog.Info("Using PostgreSQL titles store")
		return store, nil
	case config.StoreSQLite:
		store, err := storage.NewSQLiteTitles(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("can't open sqlite titles store: %w", err)
		}
		slog.Info("Using SQLite titles store", "path", cfg.SQLitePath)
		return store, nil
	default:
		slog.Info("Using file titles store", "path", cfg.TitlesFile)
		return storage.NewFileTitles(cfg.TitlesFile), nil
	}
}
