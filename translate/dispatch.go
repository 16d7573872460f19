package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"traductor/log"
)

const (
	DefaultTimeout = 30 * time.Second

	EmptyInputMessage = "Type something first."
	PendingMessage    = "Translating..."
)

// Dispatcher runs each translation on its own goroutine and hands the
// outcome to deliver. Failures are delivered as "Error: ..." text. In-flight
// requests are never cancelled; deliver must tolerate late calls.
type Dispatcher struct {
	tr       Translator
	source   string
	timeout  time.Duration
	deliver  func(text string)
	wg       sync.WaitGroup
	inflight atomic.Int32
}

// NewDispatcher labels requests with source ("audio", "ocr", "manual")
// in the translation log.
func NewDispatcher(tr Translator, source string, deliver func(text string)) *Dispatcher {
	return &Dispatcher{tr: tr, source: source, timeout: DefaultTimeout, deliver: deliver}
}

func (d *Dispatcher) SetTimeout(t time.Duration) { d.timeout = t }

func (d *Dispatcher) Translator() Translator { return d.tr }

func (d *Dispatcher) TranslateAsync(text string, pair LanguagePair) {
	d.wg.Add(1)
	d.inflight.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.inflight.Add(-1)
		out := d.Translate(context.Background(), text, pair)
		if d.deliver != nil {
			d.deliver(out)
		}
	}()
}

// Translate blocks until the provider answers and returns the display text.
func (d *Dispatcher) Translate(ctx context.Context, text string, pair LanguagePair) string {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	out, err := d.tr.Translate(ctx, text, pair)
	if err != nil {
		log.TranslationFailure(d.source, text, err)
		return ErrorText(err)
	}
	log.Translation(d.source, text, out)
	return out
}

// Submit starts a manual translation and returns the status to show until
// the result arrives.
func (d *Dispatcher) Submit(text string, pair LanguagePair) string {
	if strings.TrimSpace(text) == "" {
		return EmptyInputMessage
	}
	d.TranslateAsync(text, pair)
	return PendingMessage
}

func (d *Dispatcher) InFlight() int { return int(d.inflight.Load()) }

// Wait blocks until every dispatched request has delivered.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func ErrorText(err error) string {
	return fmt.Sprintf("Error: %v", err)
}
