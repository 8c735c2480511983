// Package transform turns an accepted group into article prose. The actual
// writing is done by an external provider behind the Transformer interface;
// Gate adds the spacing, budget, retry and validation every provider needs.
package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/source"
)

// Request is one group to write up.
type Request struct {
	Group    news.SourceGroup
	Category string
	Language string
	// Context is optional full article text of the anchor.
	Context string
}

// Output is the generated article.
type Output struct {
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Body     string   `json:"body"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// Transformer is a content generation provider.
type Transformer interface {
	Transform(ctx context.Context, req Request) (*Output, error)
	Name() string
}

const (
	maxTags         = 8
	maxExcerptRunes = 280
)

// validate trims the output and fills derivable fields. Title and body are
// required.
func validate(out *Output, req Request) error {
	if out == nil {
		return fmt.Errorf("empty response")
	}
	out.Title = strings.TrimSpace(out.Title)
	out.Body = strings.TrimSpace(out.Body)
	out.Excerpt = strings.TrimSpace(out.Excerpt)
	if out.Title == "" {
		return fmt.Errorf("response has no title")
	}
	if out.Body == "" {
		return fmt.Errorf("response has no body")
	}
	if out.Excerpt == "" {
		out.Excerpt = source.Truncate(summarize(out.Body), maxExcerptRunes)
	}
	if strings.TrimSpace(out.Category) == "" {
		out.Category = req.Category
	}
	out.Tags = cleanTags(out.Tags)
	return nil
}

func cleanTags(tags []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, "#")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

// summarize keeps the first two sentences of reasonable length.
func summarize(content string) string {
	c := strings.TrimSpace(content)
	if c == "" {
		return ""
	}
	sentences := strings.Split(c, ".")
	var picked []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if len(s) < 25 {
			continue
		}
		picked = append(picked, s)
		if len(picked) >= 2 {
			break
		}
	}
	if len(picked) == 0 {
		return source.Truncate(c, 160)
	}
	return strings.Join(picked, ". ") + "."
}
