// Package recognizer wraps incremental speech-to-text decoders behind a
// per-frame Accept call that yields partial or final hypotheses.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrModelMissing = errors.New("speech model missing")
	ErrDecode       = errors.New("malformed decoder output")
)

type Kind int

const (
	NoResult Kind = iota
	Partial
	Final
)

func (k Kind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Final:
		return "final"
	}
	return "none"
}

type Result struct {
	Kind Kind
	Text string
}

// Hypothesis is a decoder's view after one chunk of audio. Final marks an
// utterance endpoint; otherwise Text is the current partial.
type Hypothesis struct {
	Final bool
	Text  string
}

// Decoder consumes little-endian 16-bit mono PCM in order.
type Decoder interface {
	Decode(pcm []byte) (Hypothesis, error)
	Close() error
}

// Model holds loaded recognition assets for one sample rate and hands out
// a fresh Decoder per capture session.
type Model interface {
	Backend() string
	SampleRate() uint32
	NewDecoder(ctx context.Context) (Decoder, error)
	Close() error
}

type Config struct {
	Backend       string // "vosk" or "deepgram"
	ModelPath     string
	DeepgramKey   string
	DeepgramModel string
	Language      string
}

// LoadModel prepares cfg.Backend for audio at sampleRate. It fails with
// ErrModelMissing when the backend's assets or credentials are absent.
func LoadModel(cfg Config, sampleRate uint32) (Model, error) {
	backend := strings.ToLower(cfg.Backend)
	if backend == "" {
		backend = DefaultBackend
	}
	switch backend {
	case "vosk":
		return loadVosk(cfg, sampleRate)
	case "deepgram":
		if cfg.DeepgramKey == "" {
			return nil, fmt.Errorf("%w: deepgram API key not configured", ErrModelMissing)
		}
		return newDeepgramModel(cfg, sampleRate), nil
	default:
		return nil, fmt.Errorf("unknown recognizer backend %q", cfg.Backend)
	}
}
