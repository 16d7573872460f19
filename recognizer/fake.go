package recognizer

import (
	"context"
	"sync"
)

// FakeDecoder replays a fixed script of hypotheses, one per Decode call,
// then reports NoResult forever.
type FakeDecoder struct {
	mu     sync.Mutex
	script []FakeStep
	pos    int
	bytes  int
	closed bool
}

type FakeStep struct {
	Hypothesis
	Err error
}

func NewFakeDecoder(steps ...FakeStep) *FakeDecoder {
	return &FakeDecoder{script: steps}
}

func PartialStep(text string) FakeStep { return FakeStep{Hypothesis: Hypothesis{Text: text}} }
func FinalStep(text string) FakeStep {
	return FakeStep{Hypothesis: Hypothesis{Final: true, Text: text}}
}

func (f *FakeDecoder) Decode(pcm []byte) (Hypothesis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bytes += len(pcm)
	if f.pos >= len(f.script) {
		return Hypothesis{}, nil
	}
	step := f.script[f.pos]
	f.pos++
	return step.Hypothesis, step.Err
}

func (f *FakeDecoder) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Consumed is the number of script steps used so far.
func (f *FakeDecoder) Consumed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *FakeDecoder) Bytes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bytes
}

func (f *FakeDecoder) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FakeModel hands out decoders built by NewFn.
type FakeModel struct {
	Rate    uint32
	NewFn   func() Decoder
	NewErr  error
	mu      sync.Mutex
	created int
	closed  bool
}

func (m *FakeModel) Backend() string    { return "fake" }
func (m *FakeModel) SampleRate() uint32 { return m.Rate }

func (m *FakeModel) NewDecoder(context.Context) (Decoder, error) {
	if m.NewErr != nil {
		return nil, m.NewErr
	}
	m.mu.Lock()
	m.created++
	m.mu.Unlock()
	if m.NewFn == nil {
		return NewFakeDecoder(), nil
	}
	return m.NewFn(), nil
}

func (m *FakeModel) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *FakeModel) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

func (m *FakeModel) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
