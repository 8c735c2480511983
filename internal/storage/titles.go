// Package storage persists the titles-seen memory and writes publication
// files atomically.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// TitleStore persists the titles-seen list, newest first. Implementations
// replace the stored list wholesale on Save.
type TitleStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, titles []string) error
	Close() error
	Name() string
}

// TitleHash is the stable key stored next to each title.
func TitleHash(title string) string {
	h := sha256.Sum256([]byte(title))
	return hex.EncodeToString(h[:])
}
