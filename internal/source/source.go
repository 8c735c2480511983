// Package source defines the connector contract and the failure boundary
// every connector runs behind.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
)

// Kind selects the connector implementation for a source.
type Kind string

const (
	KindFeed      Kind = "feed"
	KindSearchAPI Kind = "searchApi"
	KindScrape    Kind = "scrape"
)

// Valid reports whether k names a known connector kind.
func (k Kind) Valid() bool {
	switch k {
	case KindFeed, KindSearchAPI, KindScrape:
		return true
	}
	return false
}

// Selectors are CSS selectors used by the scrape connector.
// Item scopes each story, the rest are evaluated inside it.
type Selectors struct {
	Item    string `yaml:"item"`
	Title   string `yaml:"title"`
	Link    string `yaml:"link"`
	Snippet string `yaml:"snippet"`
	Image   string `yaml:"image"`
	Date    string `yaml:"date"`
}

// Config describes one configured source.
type Config struct {
	Name      string        `yaml:"name"`
	Kind      Kind          `yaml:"kind"`
	Endpoint  string        `yaml:"endpoint"`
	Language  string        `yaml:"language"`
	Category  string        `yaml:"category"`
	Query     string        `yaml:"query"`
	APIKeyEnv string        `yaml:"api_key_env"`
	MaxItems  int           `yaml:"max_items"`
	Timeout   time.Duration `yaml:"timeout"`
	Disabled  bool          `yaml:"disabled"`
	Selectors Selectors     `yaml:"selectors"`
}

// Host returns the endpoint host used as the rate limit key.
func (c Config) Host() string {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// Validate checks that the source can be fetched.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("source name is required")
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("source %s: unknown kind %q", c.Name, c.Kind)
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("source %s: endpoint must be an absolute http(s) URL", c.Name)
	}
	return nil
}

// Connector fetches raw items from one kind of source. Implementations may
// return errors freely; Guard turns them into an empty result.
type Connector interface {
	Fetch(ctx context.Context, cfg Config) ([]news.CandidateItem, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, cfg Config) ([]news.CandidateItem, error)

// Fetch calls f.
func (f ConnectorFunc) Fetch(ctx context.Context, cfg Config) ([]news.CandidateItem, error) {
	return f(ctx, cfg)
}
