// Package searchapi is the connector for keyword news search APIs that
// answer with a NewsAPI/GNews style JSON document.
package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/source"
)

// maxBody bounds the response we are willing to decode.
const maxBody = 4 << 20

type response struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// Connector queries a search endpoint.
type Connector struct {
	client *http.Client
	getenv func(string) string
}

// New returns a search connector using client for every request.
func New(client *http.Client) *Connector {
	return &Connector{client: client, getenv: os.Getenv}
}

// Fetch runs cfg.Query against cfg.Endpoint. The API key is read from the
// environment variable named by cfg.APIKeyEnv and sent as X-Api-Key, never
// in the URL, so transport errors cannot leak it.
func (c *Connector) Fetch(ctx context.Context, cfg source.Config) ([]news.CandidateItem, error) {
	u, err := c.requestURL(cfg)
	if err != nil {
		return nil, err
	}

	var key string
	if cfg.APIKeyEnv != "" {
		if key = c.getenv(cfg.APIKeyEnv); key == "" {
			return nil, fmt.Errorf("%s is not set", cfg.APIKeyEnv)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if key != "" {
		req.Header.Set("X-Api-Key", key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}(resp.Body)

	var doc response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("error decoding search response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || doc.Status == "error" {
		return nil, fmt.Errorf("search API error: status %d: %s", resp.StatusCode, doc.Message)
	}

	items := make([]news.CandidateItem, 0, len(doc.Articles))
	for _, a := range doc.Articles {
		snippet := a.Description
		if snippet == "" {
			snippet = a.Content
		}
		img := a.URLToImage
		if img == "" {
			img = a.Image
		}
		items = append(items, news.CandidateItem{
			Title:       a.Title,
			Snippet:     snippet,
			SourceURL:   a.URL,
			ImageURL:    img,
			PublishedAt: source.ParseTime(a.PublishedAt),
			SourceName:  a.Source.Name,
		})
	}
	return items, nil
}

func (c *Connector) requestURL(cfg source.Config) (string, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}

	q := u.Query()
	if cfg.Query != "" {
		q.Set("q", cfg.Query)
	}
	if cfg.Language != "" && q.Get("language") == "" && q.Get("lang") == "" {
		q.Set("language", cfg.Language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
