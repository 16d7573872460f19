package pipeline

import (
	"strings"
	"time"

	"traductor/recognizer"
)

type State int

const (
	Idle State = iota
	Pending
	Stopped
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Stopped:
		return "stopped"
	}
	return "idle"
}

const DefaultDebounce = 500 * time.Millisecond

// Engine decides when a recognized hypothesis is ready for translation.
// Finals go out immediately; a partial goes out once it has stayed
// unchanged for longer than the debounce window. It is not safe for
// concurrent use.
type Engine struct {
	window time.Duration
	now    func() time.Time

	state     State
	held      string
	heldSince time.Time
}

func NewEngine(window time.Duration, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{window: window, now: now}
}

func (e *Engine) State() State { return e.state }

// Held returns the pending partial, empty unless State is Pending.
func (e *Engine) Held() string { return e.held }

// Observe applies one recognizer result and returns text to dispatch.
func (e *Engine) Observe(r recognizer.Result) (string, bool) {
	if e.state == Stopped {
		return "", false
	}
	switch r.Kind {
	case recognizer.Final:
		e.clear()
		text := strings.TrimSpace(r.Text)
		return text, text != ""
	case recognizer.Partial:
		if r.Text == "" || (e.state == Pending && r.Text == e.held) {
			return "", false
		}
		e.held = r.Text
		e.heldSince = e.now()
		e.state = Pending
	}
	return "", false
}

// Poll is called when no frame arrived within the poll timeout.
func (e *Engine) Poll() (string, bool) {
	if e.state != Pending || e.now().Sub(e.heldSince) <= e.window {
		return "", false
	}
	text := e.held
	e.clear()
	return text, true
}

// Reset drops any held partial without dispatching it.
func (e *Engine) Reset() {
	if e.state != Stopped {
		e.clear()
	}
}

// Stop discards the held partial; the engine ignores everything afterwards.
func (e *Engine) Stop() {
	e.held = ""
	e.heldSince = time.Time{}
	e.state = Stopped
}

func (e *Engine) clear() {
	e.held = ""
	e.heldSince = time.Time{}
	e.state = Idle
}
