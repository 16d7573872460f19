package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"traductor/log"
)

const googleEndpoint = "https://translate.googleapis.com/translate_a/single"

// Google uses the public web translation endpoint; no key is required.
type Google struct {
	client   *TracedClient
	endpoint string
}

func NewGoogle() *Google {
	return &Google{client: NewTracedClient(15 * time.Second), endpoint: googleEndpoint}
}

func (g *Google) Name() string { return "google" }

func (g *Google) Warm() time.Duration {
	return g.client.Warm(g.endpoint)
}

func (g *Google) Translate(ctx context.Context, text string, pair LanguagePair) (string, error) {
	if err := validate(text); err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", pair.Source)
	q.Set("tl", pair.Target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailure, err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailure, err)
	}
	log.RequestTiming(g.Name(), resp.Metrics)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: google: HTTP %d", ErrTranslationFailure, resp.StatusCode)
	}
	return parseGoogle(resp.Body)
}

// parseGoogle concatenates the translated segments of a gtx response:
// [[["Hola","Hello",...],["mundo","world",...]],null,"en",...]
func parseGoogle(body []byte) (string, error) {
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("%w: google: %v", ErrTranslationFailure, err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: google: empty response", ErrTranslationFailure)
	}
	segments, ok := raw[0].([]any)
	if !ok {
		return "", fmt.Errorf("%w: google: unexpected response shape", ErrTranslationFailure)
	}
	var b strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			b.WriteString(s)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: google: no translated text", ErrTranslationFailure)
	}
	return b.String(), nil
}
