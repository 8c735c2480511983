// Package textnorm builds the comparison key used by every stage that
// compares titles: connectors, classifier, grouper and deduplicator.
package textnorm

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SignificantLen is the rune length a token must exceed to count as significant.
const SignificantLen = 3

// tagLike spots text that actually carries markup; a bare "<" in a
// headline must not reach the HTML parser, which would swallow the rest.
var tagLike = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)

// StripMarkup removes tags and entities and collapses whitespace. Case and
// accents are preserved so the result is still fit for display.
func StripMarkup(s string) string {
	if tagLike.MatchString(s) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			doc.Find("script, style, noscript").Remove()
			s = doc.Text()
		}
	}
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// Fold removes diacritics: "Maracanã" becomes "Maracana".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize returns the comparison key for s: markup stripped, accents
// folded, lower-cased and whitespace collapsed.
func Normalize(s string) string {
	return strings.ToLower(Fold(StripMarkup(s)))
}

// Tokens splits the normalized form of s into letter/digit runs.
// Purely numeric runs such as scores or years are dropped.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if isNumeric(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SignificantTokens is the set of tokens longer than SignificantLen runes.
func SignificantTokens(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokens(s) {
		if len([]rune(t)) > SignificantLen {
			set[t] = struct{}{}
		}
	}
	return set
}

// TokenSet is the set of all tokens of s.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokens(s) {
		set[t] = struct{}{}
	}
	return set
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
