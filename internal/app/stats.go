package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/publish"
)

// Stats describes what is currently published.
type Stats struct {
	Articles    int            `json:"articles"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Newest      string         `json:"newest,omitempty"`
	Categories  map[string]int `json:"categories"`
	Languages   map[string]int `json:"languages"`
	TitlesSeen  int            `json:"titles_seen"`
	TitlesStore string         `json:"titles_store"`
	IndexError  string         `json:"index_error,omitempty"`
}

// CategoryNames returns the category keys sorted by count, then name.
func (s Stats) CategoryNames() []string {
	return sortedKeys(s.Categories)
}

// LanguageNames returns the language keys sorted by count, then name.
func (s Stats) LanguageNames() []string {
	return sortedKeys(s.Languages)
}

// CollectStats reads the index and the titles-seen store without changing
// either. A corrupt index is reported in IndexError, not as a failure.
func CollectStats(ctx context.Context, cfg *config.Config) (Stats, error) {
	idx, err := publish.ReadIndex(filepath.Join(cfg.DataDir, "index.json"))
	st := Stats{
		Articles:   len(idx.Articles),
		UpdatedAt:  idx.UpdatedAt,
		Categories: make(map[string]int),
		Languages:  make(map[string]int),
	}
	var corrupt *news.IndexCorruptError
	if errors.As(err, &corrupt) {
		st.IndexError = corrupt.Error()
	} else if err != nil {
		return st, err
	}
	if len(idx.Articles) > 0 {
		st.Newest = idx.Articles[0].Title
	}
	for _, a := range idx.Articles {
		st.Categories[a.Category]++
		st.Languages[a.Language]++
	}

	store, err := openTitleStore(ctx, cfg)
	if err != nil {
		return st, err
	}
	defer store.Close()

	st.TitlesStore = store.Name()
	titles, err := store.Load(ctx)
	if err != nil && !errors.As(err, &corrupt) {
		return st, fmt.Errorf("can't read titles-seen: %w", err)
	}
	st.TitlesSeen = len(titles)
	return st, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
