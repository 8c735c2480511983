package transform

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxContextRunes = 6000

var languageNames = map[string]string{
	"pt": "Portuguese",
	"en": "English",
	"es": "Spanish",
	"da": "Danish",
	"de": "German",
	"fr": "French",
	"uk": "Ukrainian",
	"it": "Italian",
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	if code == "" {
		return "the language of the sources"
	}
	return code
}

// buildPrompt asks for a single JSON object so both providers can share
// parseOutput.
func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a news editor. Write one original news article in %s ", languageName(req.Language))
	fmt.Fprintf(&b, "for the %q section, based only on the reports below.\n", req.Category)
	b.WriteString("Do not invent facts, quotes or numbers. Keep proper names untranslated.\n\n")

	b.WriteString("REPORTS:\n")
	for i, it := range req.Group.Items {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, it.SourceName, it.Title)
		if it.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", it.Snippet)
		}
	}

	if ctx := strings.TrimSpace(req.Context); ctx != "" {
		if utf8.RuneCountInString(ctx) > maxContextRunes {
			ctx = string([]rune(ctx)[:maxContextRunes]) + "\n[TRUNCATED]"
		}
		fmt.Fprintf(&b, "\nFULL TEXT OF THE FIRST REPORT:\n%s\n", ctx)
	}

	b.WriteString(`
Answer with a single JSON object and nothing else:
{"title": "...", "excerpt": "one or two sentences", "body": "3-6 paragraphs separated by blank lines", "tags": ["3-6 lowercase tags"], "category": "` + req.Category + `"}`)
	return b.String()
}

// parseOutput extracts the JSON object from a model answer, tolerating
// markdown fences and surrounding chatter.
func parseOutput(text string) (*Output, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var out Output
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &out, nil
}
