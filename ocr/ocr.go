// Package ocr translates the text inside a screen region: grab, threshold,
// recognize, clean, translate.
package ocr

import (
	"context"
	"image"
	"image/png"
	"os"
	"strings"

	"traductor/log"
	"traductor/translate"
)

const (
	NoTextMessage       = "No text detected."
	NoUsefulTextMessage = "No useful text detected."
)

type Pipeline struct {
	Grabber    Grabber
	Engine     Engine
	Dispatcher *translate.Dispatcher
	Pair       translate.LanguagePair
	Threshold  uint8

	// DebugPath, when set, receives the thresholded image of every run.
	DebugPath string
}

// Run returns the text to display for r: a translation, one of the
// no-text messages, or "Error: ...".
func (p *Pipeline) Run(ctx context.Context, r Region) string {
	img, err := p.Grabber.Grab(ctx, r)
	if err != nil {
		log.Errorf("ocr grab %s: %v", r, err)
		return translate.ErrorText(err)
	}
	bin := Binarize(img, p.Threshold)
	if p.DebugPath != "" {
		if err := writePNG(p.DebugPath, bin); err != nil {
			log.Warnf("ocr debug image: %v", err)
		}
	}

	raw, err := p.Engine.Recognize(ctx, bin)
	if err != nil {
		log.Errorf("ocr: %v", err)
		return translate.ErrorText(err)
	}
	if raw == "" {
		return NoTextMessage
	}
	text := CleanLines(raw)
	if text == "" {
		return NoUsefulTextMessage
	}
	return p.Dispatcher.Translate(ctx, text, p.Pair)
}

// RunAsync performs Run on its own goroutine and hands the result to deliver.
func (p *Pipeline) RunAsync(r Region, deliver func(text string)) {
	go func() {
		deliver(p.Run(context.Background(), r))
	}()
}

// CleanLines drops blank lines and the form feeds tesseract emits,
// keeping line breaks between the rest.
func CleanLines(raw string) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.Trim(line, "\r\f"))
		}
	}
	return strings.Join(kept, "\n")
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
