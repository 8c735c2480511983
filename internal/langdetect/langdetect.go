// Package langdetect tags items whose source did not declare a language.
package langdetect

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// DefaultLanguages are used when fewer than two candidates are configured.
var DefaultLanguages = []string{"en", "pt", "es", "da", "de", "fr"}

// Detector maps text to an ISO 639-1 code.
type Detector struct {
	detector lingua.LanguageDetector
	fallback string
}

// New builds a detector restricted to the given ISO 639-1 codes. Unknown
// codes are ignored. fallback is returned when detection is not confident.
func New(codes []string, fallback string) *Detector {
	langs := languages(codes)
	if len(langs) < 2 {
		langs = languages(DefaultLanguages)
	}

	return &Detector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			WithMinimumRelativeDistance(0.1).
			Build(),
		fallback: strings.ToLower(fallback),
	}
}

// Detect returns the language code of text or the fallback.
func (d *Detector) Detect(text string) string {
	if strings.TrimSpace(text) == "" {
		return d.fallback
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return d.fallback
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

func languages(codes []string) []lingua.Language {
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[strings.ToLower(strings.TrimSpace(c))] = true
	}

	var out []lingua.Language
	for _, l := range lingua.AllLanguages() {
		if want[strings.ToLower(l.IsoCode639_1().String())] {
			out = append(out, l)
		}
	}
	return out
}
