package textnorm

import (
	"regexp"
	"strings"
)

// Term is a keyword compiled for matching against normalized text.
//
// Phrases (containing a space) match as substrings. Short words (<= 3 runes)
// match as whole words so "ai" does not hit "said". Longer words match as
// substrings so stems like "eleic" still catch "eleicao" and "eleicoes".
type Term struct {
	Raw  string
	key  string
	word *regexp.Regexp
}

// CompileTerm prepares keyword k. The zero Term never matches.
func CompileTerm(k string) Term {
	key := Normalize(k)
	t := Term{Raw: k, key: key}
	if key != "" && !strings.Contains(key, " ") && len([]rune(key)) <= SignificantLen {
		// RE2's \b is ASCII-only, so boundaries are spelled out for any script.
		t.word = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])` + regexp.QuoteMeta(key) + `(?:[^\p{L}\p{N}]|$)`)
	}
	return t
}

// CompileTerms compiles every keyword, skipping blanks.
func CompileTerms(keywords []string) []Term {
	terms := make([]Term, 0, len(keywords))
	for _, k := range keywords {
		t := CompileTerm(k)
		if t.key == "" {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

// Match reports whether the term occurs in text, which must already be Normalize'd.
func (t Term) Match(text string) bool {
	if t.key == "" {
		return false
	}
	if t.word != nil {
		return t.word.MatchString(text)
	}
	return strings.Contains(text, t.key)
}

// MatchAny reports whether any term occurs in normalized text.
func MatchAny(text string, terms []Term) bool {
	for _, t := range terms {
		if t.Match(text) {
			return true
		}
	}
	return false
}
