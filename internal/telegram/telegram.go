// Package telegram announces freshly published articles to a chat or channel.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/retry"
)

const defaultBaseURL = "https://api.telegram.org"

// Notifier sends one message per published article.
type Notifier struct {
	token   string
	chatID  string
	siteURL string
	baseURL string
	client  *http.Client
	retry   retry.RetryConfig
}

// New returns a notifier, or nil when token or chat id is missing.
func New(token, chatID, siteURL string) *Notifier {
	if token == "" || chatID == "" {
		return nil
	}
	return &Notifier{
		token:   token,
		chatID:  chatID,
		siteURL: strings.TrimRight(siteURL, "/"),
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
	}
}

// Announce posts a short message linking to a. Failures are returned for
// logging; they never affect what was published.
func (n *Notifier) Announce(ctx context.Context, a news.PublishedArticle) error {
	text := FormatArticle(a, n.siteURL)
	err := retry.WithRetry(ctx, n.retry, func() error {
		return n.sendMessageOnce(ctx, text)
	})
	if err != nil {
		return fmt.Errorf("can't send message for %s: %w", a.ID, err)
	}
	slog.Info("Message sent to Telegram", "id", a.ID)
	return nil
}

// FormatArticle renders the HTML message body.
func FormatArticle(a news.PublishedArticle, siteURL string) string {
	var b strings.Builder
	b.WriteString("<b>" + html.EscapeString(a.Title) + "</b>\n")
	if a.Excerpt != "" {
		b.WriteString(html.EscapeString(a.Excerpt) + "\n")
	}
	if siteURL != "" {
		link := siteURL + a.URL
		b.WriteString(`<a href="` + html.EscapeString(link) + `">` + html.EscapeString(link) + "</a>\n")
	}
	if len(a.Tags) > 0 {
		tags := make([]string, 0, len(a.Tags))
		for _, t := range a.Tags {
			tags = append(tags, "#"+strings.ReplaceAll(t, " ", "_"))
		}
		b.WriteString(html.EscapeString(strings.Join(tags, " ")))
	}
	return strings.TrimSpace(b.String())
}

// sendMessageOnce does one try to send message.
func (n *Notifier) sendMessageOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)

	payload := map[string]interface{}{
		"chat_id":                  n.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("error make JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			slog.Warn("Failed to close response body", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return retry.Permanent(fmt.Errorf("telegram API error: status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}
