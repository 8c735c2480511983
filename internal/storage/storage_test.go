package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdesk/internal/news"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "index.json")

	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileTitles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "titles.json")
	store := NewFileTitles(path)

	titles, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, titles)

	require.NoError(t, store.Save(ctx, []string{"newest", "older"}))
	titles, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"newest", "older"}, titles)
}

func TestFileTitlesCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "titles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"titles": [`), 0o644))

	_, err := NewFileTitles(path).Load(context.Background())
	var ce *news.IndexCorruptError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, path, ce.Path)
}

func TestSQLiteTitles(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteTitles(ctx, filepath.Join(t.TempDir(), "titles.db"))
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, "sqlite", store.Name())

	titles, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, titles)

	require.NoError(t, store.Save(ctx, []string{"c", "b", "a"}))
	require.NoError(t, store.Save(ctx, []string{"d", "c", "b"}))

	titles, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b"}, titles)
}

func TestSQLiteTitlesKeyedByHash(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteTitles(ctx, filepath.Join(t.TempDir(), "titles.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, []string{"b", "a", "b", "c"}))
	titles, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, titles)

	// The unique key is enforced by the table itself.
	_, err = store.(*sqlTitles).db.ExecContext(ctx,
		`INSERT INTO seen_titles (position, hash, title, saved_at) VALUES (?, ?, ?, ?)`,
		99, TitleHash("a"), "a", "2026-01-01 00:00:00")
	assert.Error(t, err)
}

func TestTitleHash(t *testing.T) {
	assert.Len(t, TitleHash("x"), 64)
	assert.Equal(t, TitleHash("x"), TitleHash("x"))
	assert.NotEqual(t, TitleHash("x"), TitleHash("y"))
}
