package searchapi

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

func TestFetch(t *testing.T) {
	queries := make(chan string, 1)
	keys := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		keys <- r.Header.Get("X-Api-Key")
		_, _ = w.Write([]byte(`{"status":"ok","articles":[
			{"title":"Eleição em São Paulo","description":"Apuração","url":"https://a.example/1",
			 "urlToImage":"https://a.example/1.jpg","publishedAt":"2026-03-01T09:00:00Z","source":{"name":"Folha"}},
			{"title":"Second","content":"Body text","url":"https://a.example/2","image":"https://a.example/2.jpg"}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.Client())
	c.getenv = func(k string) string {
		if k == "NEWS_KEY" {
			return "secret"
		}
		return ""
	}

	items, err := c.Fetch(context.Background(), source.Config{
		Endpoint:  srv.URL + "/v2/everything",
		Query:     "eleição",
		Language:  "pt",
		APIKeyEnv: "NEWS_KEY",
	})
	require.NoError(t, err)
	require.Len(t, items, 2)

	gotQuery := <-queries
	assert.NotContains(t, gotQuery, "secret")
	assert.Equal(t, "secret", <-keys)
	assert.Contains(t, gotQuery, "language=pt")
	assert.Contains(t, gotQuery, "q=elei")

	assert.Equal(t, "Eleição em São Paulo", items[0].Title)
	assert.Equal(t, "Folha", items[0].SourceName)
	assert.Equal(t, "https://a.example/1.jpg", items[0].ImageURL)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), items[0].PublishedAt)

	assert.Equal(t, "Body text", items[1].Snippet)
	assert.Equal(t, "https://a.example/2.jpg", items[1].ImageURL)
}

func TestFetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","message":"apiKeyInvalid"}`))
	}))
	defer srv.Close()

	c := New(srv.Client())
	c.getenv = func(string) string { return "" }

	_, err := c.Fetch(context.Background(), source.Config{Endpoint: srv.URL})
	assert.ErrorContains(t, err, "apiKeyInvalid")

	_, err = c.Fetch(context.Background(), source.Config{Endpoint: srv.URL, APIKeyEnv: "MISSING"})
	assert.ErrorContains(t, err, "MISSING is not set")
}

func TestFetchTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL + "/v2/everything"
	srv.Close()

	c := New(&http.Client{Timeout: time.Second})
	c.getenv = func(string) string { return "s3cr3t-key" }

	_, err := c.Fetch(context.Background(), source.Config{
		Endpoint:  endpoint,
		Query:     "futebol",
		APIKeyEnv: "NEWS_KEY",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "q=futebol")
	assert.NotContains(t, err.Error(), "s3cr3t-key")
}
