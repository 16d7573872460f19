package translate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake returns deterministic translations. Dictionary maps target
// language to source text to translation; unknown text becomes
// "[tgt] text".
type Fake struct {
	Dictionary map[string]map[string]string
	Delay      time.Duration
	Err        error

	mu    sync.Mutex
	calls []string
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Translate(ctx context.Context, text string, pair LanguagePair) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.Err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailure, f.Err)
	}
	if out, ok := f.Dictionary[pair.Target][text]; ok {
		return out, nil
	}
	return fmt.Sprintf("[%s] %s", pair.Target, text), nil
}

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
