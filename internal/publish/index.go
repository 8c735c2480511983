package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
)

// IndexVersion is written into every index document.
const IndexVersion = 1

// Index is the persisted publication index, newest first.
type Index struct {
	Version   int                     `json:"version"`
	UpdatedAt time.Time               `json:"updated_at"`
	Articles  []news.PublishedArticle `json:"articles"`
}

// ReadIndex loads the index at path. A missing file is an empty index.
// Unparseable or structurally invalid content returns an empty index and a
// *news.IndexCorruptError.
func ReadIndex(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Index{Version: IndexVersion}, nil
	}
	if err != nil {
		return Index{Version: IndexVersion}, &news.IndexCorruptError{Path: path, Err: err}
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{Version: IndexVersion}, &news.IndexCorruptError{Path: path, Err: err}
	}
	if err := idx.validate(); err != nil {
		return Index{Version: IndexVersion}, &news.IndexCorruptError{Path: path, Err: err}
	}
	return idx, nil
}

// validate catches torn or hand-edited indexes: every entry needs an id and
// url, ids are unique and timestamps strictly decrease.
func (idx Index) validate() error {
	seen := make(map[string]bool, len(idx.Articles))
	for i, a := range idx.Articles {
		if a.ID == "" || a.URL == "" {
			return fmt.Errorf("entry %d lacks id or url", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate id %q", a.ID)
		}
		seen[a.ID] = true
		if i > 0 && !idx.Articles[i-1].PublishedAt.After(a.PublishedAt) {
			return fmt.Errorf("entry %d (%s) is not older than entry %d", i, a.ID, i-1)
		}
	}
	return nil
}

// prepend returns a new index with a at the head, truncated to limit.
func (idx Index) prepend(a news.PublishedArticle, limit int, now time.Time) Index {
	articles := make([]news.PublishedArticle, 0, len(idx.Articles)+1)
	articles = append(articles, a.Summary())
	articles = append(articles, idx.Articles...)
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return Index{Version: IndexVersion, UpdatedAt: now, Articles: articles}
}

// Filter returns up to limit articles, in index order, for which keep is true.
func (idx Index) Filter(keep func(news.PublishedArticle) bool, limit int) []news.PublishedArticle {
	out := []news.PublishedArticle{}
	for _, a := range idx.Articles {
		if !keep(a) {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
