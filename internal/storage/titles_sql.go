package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
)

// sqlTitles is the titles-seen table shared by the Postgres and SQLite
// backends. Only the placeholders differ between them.
type sqlTitles struct {
	db     *sql.DB
	name   string
	insert string
}

const titlesSchema = `
	CREATE TABLE IF NOT EXISTS seen_titles (
		position INTEGER PRIMARY KEY,
		hash VARCHAR(64) NOT NULL UNIQUE,
		title TEXT NOT NULL,
		saved_at TIMESTAMP NOT NULL
	)`

// Tables created before hash was unique get the constraint from the index.
const titlesHashIndex = `CREATE UNIQUE INDEX IF NOT EXISTS seen_titles_hash ON seen_titles (hash)`

func (s *sqlTitles) initSchema(ctx context.Context) error {
	for _, stmt := range []string{titlesSchema, titlesHashIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Name implements TitleStore.
func (s *sqlTitles) Name() string { return s.name }

// Load returns the stored titles newest first. Query failures are reported
// as *news.IndexCorruptError so the caller can start empty.
func (s *sqlTitles) Load(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM seen_titles ORDER BY position`)
	if err != nil {
		return nil, &news.IndexCorruptError{Path: s.name + ":seen_titles", Err: err}
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, &news.IndexCorruptError{Path: s.name + ":seen_titles", Err: err}
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &news.IndexCorruptError{Path: s.name + ":seen_titles", Err: err}
	}
	return titles, nil
}

// Save replaces the table contents in one transaction. The hash column is
// the title's key, so a repeated title keeps only its newest position.
func (s *sqlTitles) Save(ctx context.Context, titles []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Warn("Rollback failed", "store", s.name, "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM seen_titles`); err != nil {
		return fmt.Errorf("failed to clear titles: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	written := make(map[string]bool, len(titles))
	for i, t := range titles {
		hash := TitleHash(t)
		if written[hash] {
			continue
		}
		written[hash] = true
		if _, err := stmt.ExecContext(ctx, i, hash, t, now); err != nil {
			return fmt.Errorf("failed to insert title: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit titles: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *sqlTitles) Close() error {
	return s.db.Close()
}
