package language

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"

	"Auditorium/internal/ports"
)

// Detector restricts lingua to a small, configured set of languages.
type Detector struct {
	detector lingua.LanguageDetector
}

var _ ports.LanguageDetector = (*Detector)(nil)

// NewDetector resolves language names ("portuguese", "English") and builds the detector.
func NewDetector(names []string) (*Detector, error) {
	var langs []lingua.Language
	seen := map[lingua.Language]bool{}
	for _, name := range names {
		lang, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown language %q", name)
		}
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	if len(langs) < 2 {
		return nil, fmt.Errorf("language detection needs at least two languages, got %d", len(langs))
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		WithPreloadedLanguageModels().
		Build()
	return &Detector{detector: detector}, nil
}

// Detect returns the lowercase language name, or false when lingua is unsure.
func (d *Detector) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.String()), true
}

func lookup(name string) (lingua.Language, bool) {
	name = strings.TrimSpace(name)
	for _, lang := range lingua.AllLanguages() {
		if strings.EqualFold(lang.String(), name) {
			return lang, true
		}
	}
	return lingua.Unknown, false
}
