package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newsdesk/internal/source"
)

const listingPage = `<html><body>
<div class="card">
  <h3 class="headline"><a href="/a/1">Time A vence Time B 2-1</a></h3>
  <span class="teaser">Partida decidida no fim. Leia mais</span>
  <img data-src="/img/1.jpg" src="data:image/gif;base64,AAA">
  <time datetime="2026-03-01T10:00:00Z">1 mar</time>
</div>
<div class="card">
  <h3 class="headline"><a href="https://other.example/a/2">Time C empata com Time D</a></h3>
</div>
<div class="card"><span class="teaser">no headline</span></div>
</body></html>`

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchWithSelectors(t *testing.T) {
	srv := serve(t, listingPage)
	cfg := source.Config{
		Name:     "lance",
		Endpoint: srv.URL,
		Selectors: source.Selectors{
			Item:    ".card",
			Title:   ".headline",
			Snippet: ".teaser",
		},
	}

	items, err := New(srv.Client()).Fetch(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Time A vence Time B 2-1", items[0].Title)
	assert.Equal(t, "/a/1", items[0].SourceURL)
	assert.Equal(t, "Partida decidida no fim.", items[0].Snippet)
	assert.Equal(t, "/img/1.jpg", items[0].ImageURL)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), items[0].PublishedAt)

	assert.Equal(t, "https://other.example/a/2", items[1].SourceURL)
	assert.True(t, items[1].PublishedAt.IsZero())
}

func TestFetchFallsBackToHeadlineLinks(t *testing.T) {
	srv := serve(t, `<html><body><h2><a href="/x">Headline only</a></h2></body></html>`)

	items, err := New(srv.Client()).Fetch(context.Background(), source.Config{Endpoint: srv.URL})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Headline only", items[0].Title)
	assert.Equal(t, "/x", items[0].SourceURL)
}

func TestFetchNothingMatched(t *testing.T) {
	srv := serve(t, `<html><body><p>empty</p></body></html>`)

	_, err := New(srv.Client()).Fetch(context.Background(), source.Config{Endpoint: srv.URL})
	assert.Error(t, err)
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(srv.Client()).Fetch(context.Background(), source.Config{Endpoint: srv.URL})
	assert.ErrorContains(t, err, "404")
}

func TestExtractArticle(t *testing.T) {
	srv := serve(t, `<html><body><h1>Title</h1><article>
<p>First paragraph with enough words to count.</p>
<p>Second paragraph with enough words to count.</p>
<p>Third paragraph with enough words to count.</p>
<p>short</p>
</article><footer><p>Footer text that should never appear here.</p></footer></body></html>`)

	art, err := New(srv.Client()).ExtractArticle(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Title", art.Title)
	assert.Contains(t, art.Content, "Third paragraph")
	assert.NotContains(t, art.Content, "short")
	assert.NotContains(t, art.Content, "Footer")
}
