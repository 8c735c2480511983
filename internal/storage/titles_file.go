package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
)

type titlesDocument struct {
	UpdatedAt time.Time `json:"updated_at"`
	Titles    []string  `json:"titles"`
}

// FileTitles keeps the titles-seen list in a JSON document.
type FileTitles struct {
	path string
}

// NewFileTitles returns a store backed by path.
func NewFileTitles(path string) *FileTitles {
	return &FileTitles{path: path}
}

// Name implements TitleStore.
func (f *FileTitles) Name() string { return "file" }

// Load reads the list. A missing file is an empty list; an unreadable or
// malformed one is reported as *news.IndexCorruptError.
func (f *FileTitles) Load(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &news.IndexCorruptError{Path: f.path, Err: err}
	}
	if len(data) == 0 {
		return nil, nil
	}

	var doc titlesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &news.IndexCorruptError{Path: f.path, Err: fmt.Errorf("failed to parse titles file: %w", err)}
	}
	return doc.Titles, nil
}

// Save replaces the file atomically.
func (f *FileTitles) Save(ctx context.Context, titles []string) error {
	if titles == nil {
		titles = []string{}
	}
	return WriteJSONAtomic(f.path, titlesDocument{UpdatedAt: time.Now().UTC(), Titles: titles})
}

// Close implements TitleStore.
func (f *FileTitles) Close() error { return nil }
