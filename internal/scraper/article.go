package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ArticleContent is the readable text of a full article page.
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// Paragraph containers tried in order until one yields enough text.
var articleSelectors = []string{
	"article p",
	".article-body p",
	".article-content p",
	".content p",
	".post-content p",
	".entry-content p",
	"main p",
	"#content p",
	"p",
}

// maxArticleChars keeps prompts bounded.
const maxArticleChars = 6000

// ExtractArticle fetches url and returns its main text. It goes through the
// same rate-limited client as the listing scrape.
func (c *Connector) ExtractArticle(ctx context.Context, url string) (*ArticleContent, error) {
	doc, err := c.load(ctx, url)
	if err != nil {
		return nil, err
	}

	content := extractParagraphs(doc)
	if content == "" {
		return nil, fmt.Errorf("can't get content from %s", url)
	}

	return &ArticleContent{
		Title:   strings.TrimSpace(doc.Find("h1").First().Text()),
		Content: content,
		URL:     url,
	}, nil
}

func extractParagraphs(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, aside, form").Remove()

	var paragraphs []string
	for _, selector := range articleSelectors {
		paragraphs = paragraphs[:0]
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := cleanContent(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			break
		}
	}

	var b strings.Builder
	for _, p := range paragraphs {
		if b.Len()+len(p) > maxArticleChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
	}
	return b.String()
}
