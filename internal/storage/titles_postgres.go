package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// NewPostgresTitles connects to PostgreSQL and makes sure the table exists.
func NewPostgresTitles(ctx context.Context, connectionString string) (TitleStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &sqlTitles{
		db:     db,
		name:   "postgres",
		insert: `INSERT INTO seen_titles (position, hash, title, saved_at) VALUES ($1, $2, $3, $4)`,
	}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("PostgreSQL titles store connected")
	return store, nil
}
