package transform

import (
	"context"
	"sort"
	"strings"

	"github.com/deusflow/newsdesk/internal/textnorm"
)

// Extractive assembles an article from the group's own snippets without
// calling a model. It is the provider for keyless runs.
type Extractive struct{}

// Name implements Transformer.
func (Extractive) Name() string { return "extractive" }

// Transform implements Transformer.
func (Extractive) Transform(ctx context.Context, req Request) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	anchor := req.Group.Anchor()
	var paragraphs []string
	seen := make(map[string]bool)
	for _, it := range req.Group.Items {
		s := strings.TrimSpace(it.Snippet)
		key := textnorm.Normalize(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		paragraphs = append(paragraphs, s)
	}
	if ctxText := strings.TrimSpace(req.Context); ctxText != "" {
		paragraphs = append(paragraphs, ctxText)
	}
	if len(paragraphs) == 0 {
		paragraphs = append(paragraphs, anchor.Title)
	}
	body := strings.Join(paragraphs, "\n\n")

	return &Output{
		Title:    anchor.Title,
		Excerpt:  summarize(body),
		Body:     body,
		Tags:     topTokens(req),
		Category: req.Category,
	}, nil
}

// topTokens picks the significant tokens shared by most members.
func topTokens(req Request) []string {
	counts := make(map[string]int)
	for _, it := range req.Group.Items {
		for t := range textnorm.SignificantTokens(it.Title) {
			counts[t]++
		}
	}
	tokens := make([]string, 0, len(counts))
	for t := range counts {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > 5 {
		tokens = tokens[:5]
	}
	return tokens
}
