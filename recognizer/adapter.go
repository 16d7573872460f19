package recognizer

import (
	"strings"

	"traductor/audio"
)

// Adapter feeds preprocessed mono frames to a Decoder and normalizes its
// output. It is owned by a single processing loop.
type Adapter struct {
	dec        Decoder
	sampleRate uint32
	samples    uint64
}

func NewAdapter(dec Decoder, sampleRate uint32) *Adapter {
	return &Adapter{dec: dec, sampleRate: sampleRate}
}

func (a *Adapter) SampleRate() uint32 { return a.sampleRate }

// Duration is the amount of audio accepted so far, in seconds.
func (a *Adapter) Duration() float64 {
	if a.sampleRate == 0 {
		return 0
	}
	return float64(a.samples) / float64(a.sampleRate)
}

// Accept decodes one frame. A decoder endpoint yields Final, even with
// empty text; a non-empty partial yields Partial; anything else NoResult.
func (a *Adapter) Accept(samples []int16) (Result, error) {
	a.samples += uint64(len(samples))
	h, err := a.dec.Decode(audio.EncodePCM(samples))
	if err != nil {
		return Result{}, err
	}
	text := strings.TrimSpace(h.Text)
	if h.Final {
		return Result{Kind: Final, Text: text}, nil
	}
	if text == "" {
		return Result{Kind: NoResult}, nil
	}
	return Result{Kind: Partial, Text: text}, nil
}

func (a *Adapter) Close() error {
	return a.dec.Close()
}
