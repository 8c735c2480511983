package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/storage"
)

// Shard is a derived view of the index for one category or language.
type Shard struct {
	Kind      string                  `json:"kind"`
	Key       string                  `json:"key"`
	UpdatedAt time.Time               `json:"updated_at"`
	Articles  []news.PublishedArticle `json:"articles"`
}

const (
	shardCategory = "category"
	shardLanguage = "language"
)

// writeShards regenerates every shard of kind from idx and removes shard
// files whose key no longer appears.
func (p *Publisher) writeShards(idx Index, kind string, key func(news.PublishedArticle) string) error {
	dir := filepath.Join(p.opts.Dir, "shards", kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}

	var keys []string
	seen := make(map[string]bool)
	for _, a := range idx.Articles {
		k := key(a)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	for _, k := range keys {
		shard := Shard{
			Kind:      kind,
			Key:       k,
			UpdatedAt: idx.UpdatedAt,
			Articles:  idx.Filter(func(a news.PublishedArticle) bool { return key(a) == k }, p.opts.ShardLimit),
		}
		if err := storage.WriteJSONAtomic(filepath.Join(dir, k+".json"), shard); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list shard dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if !seen[strings.TrimSuffix(name, ".json")] {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return fmt.Errorf("remove stale shard %s: %w", name, err)
			}
		}
	}
	return nil
}

// ReadShard loads one shard file.
func ReadShard(dir, kind, key string) (Shard, error) {
	var s Shard
	data, err := os.ReadFile(filepath.Join(dir, "shards", kind, key+".json"))
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse shard %s/%s: %w", kind, key, err)
	}
	return s, nil
}
