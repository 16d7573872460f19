// Package translate sends text to a machine translation provider and
// delivers results off the caller's goroutine.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrTranslationFailure = errors.New("translation failed")

// MaxChars is the longest input a single request accepts.
const MaxChars = 5000

type LanguagePair struct {
	Source string
	Target string
}

// ParsePair reads "src:dst", e.g. "en:es".
func ParsePair(s string) (LanguagePair, error) {
	src, dst, ok := strings.Cut(strings.TrimSpace(s), ":")
	src, dst = strings.ToLower(strings.TrimSpace(src)), strings.ToLower(strings.TrimSpace(dst))
	if !ok || src == "" || dst == "" {
		return LanguagePair{}, fmt.Errorf("invalid language pair %q (want src:dst)", s)
	}
	return LanguagePair{Source: src, Target: dst}, nil
}

func (p LanguagePair) Reverse() LanguagePair {
	return LanguagePair{Source: p.Target, Target: p.Source}
}

func (p LanguagePair) String() string {
	return strings.ToUpper(p.Source) + "→" + strings.ToUpper(p.Target)
}

type Translator interface {
	Name() string
	Translate(ctx context.Context, text string, pair LanguagePair) (string, error)
}

type Config struct {
	Provider      string // "google" or "openai"
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	Timeout       time.Duration
}

func New(cfg Config) (Translator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "google":
		return NewGoogle(), nil
	case "openai":
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Provider)
	}
}

func validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty text", ErrTranslationFailure)
	}
	if n := len([]rune(text)); n > MaxChars {
		return fmt.Errorf("%w: text is %d characters, limit is %d", ErrTranslationFailure, n, MaxChars)
	}
	return nil
}

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ja": "Japanese",
	"zh": "Chinese",
	"ko": "Korean",
	"ru": "Russian",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
