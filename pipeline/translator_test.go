package pipeline

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"traductor/audio"
	"traductor/recognizer"
	"traductor/translate"
)

type sink struct {
	mu           sync.Mutex
	translations chan string
	errs         chan string
	states       chan bool
	partials     []string
}

func newSink() *sink {
	return &sink{
		translations: make(chan string, 32),
		errs:         make(chan string, 32),
		states:       make(chan bool, 32),
	}
}

func (s *sink) callbacks() Callbacks {
	return Callbacks{
		OnTranslation: func(text string) { s.translations <- text },
		OnError:       func(msg string) { s.errs <- msg },
		OnState:       func(active bool) { s.states <- active },
		OnPartial: func(text string) {
			s.mu.Lock()
			s.partials = append(s.partials, text)
			s.mu.Unlock()
		},
	}
}

func (s *sink) next(t *testing.T, ch chan string, what string) string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	return ""
}

func (s *sink) none(t *testing.T, ch chan string, what string, wait time.Duration) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected %s %q", what, v)
	case <-time.After(wait):
	}
}

type harness struct {
	actx    *audio.FakeContext
	tr      *translate.Fake
	dec     *recognizer.FakeDecoder
	sink    *sink
	at      *AudioTranslator
	loads   int
	loadErr error
	models  []*recognizer.FakeModel
}

// frames is the number of audio blocks each capture delivers before going quiet.
func newHarness(t *testing.T, frames int, steps ...recognizer.FakeStep) *harness {
	t.Helper()
	broken := audio.FakeDevice{Info: audio.DeviceInfo{ID: "b", Name: "Broken Microphone", MaxInputChannels: 1, DefaultSampleRate: 44100}, OpenErr: errors.New("busy")}
	h := &harness{
		actx: audio.NewFakeContext(
			audio.FakeDevice{Info: audio.DeviceInfo{ID: "m", Name: "USB Microphone", MaxInputChannels: 1, DefaultSampleRate: 44100}},
			audio.FakeDevice{Info: audio.DeviceInfo{ID: "m2", Name: "Headset Microphone", MaxInputChannels: 1, DefaultSampleRate: 44100}},
			audio.FakeDevice{Info: audio.DeviceInfo{ID: "v", Name: "HyperX Virtual Surround Sound", MaxInputChannels: 2, DefaultSampleRate: 48000}},
			broken,
		),
		tr:   &translate.Fake{},
		dec:  recognizer.NewFakeDecoder(steps...),
		sink: newSink(),
	}
	h.actx.SetPCM(make([]byte, frames*4*2), 4, time.Millisecond)

	opts := Options{
		Debounce:    50 * time.Millisecond,
		PollTimeout: 5 * time.Millisecond,
		Liveness:    5 * time.Millisecond,
		Pair:        translate.LanguagePair{Source: "en", Target: "es"},
		LoadModel: func(_ recognizer.Config, rate uint32) (recognizer.Model, error) {
			h.loads++
			if h.loadErr != nil {
				return nil, h.loadErr
			}
			m := &recognizer.FakeModel{Rate: rate, NewFn: func() recognizer.Decoder { return h.dec }}
			h.models = append(h.models, m)
			return m, nil
		},
	}
	h.at = New(h.actx, h.tr, opts, h.sink.callbacks())
	t.Cleanup(func() {
		h.at.Close()
		h.at.Wait()
	})
	return h
}

func (h *harness) start(t *testing.T, id string) {
	t.Helper()
	if _, err := h.at.SelectDevice(id); err != nil {
		t.Fatal(err)
	}
	if err := h.at.Start(); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFinalIsTranslated(t *testing.T) {
	h := newHarness(t, 4, recognizer.PartialStep("hel"), recognizer.FinalStep("hello world"))
	h.start(t, "m")

	if got := h.sink.next(t, h.sink.translations, "translation"); got != "[es] hello world" {
		t.Errorf("got %q", got)
	}
	h.sink.none(t, h.sink.translations, "translation", 150*time.Millisecond)

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	if len(h.sink.partials) != 2 || h.sink.partials[0] != "hel" || h.sink.partials[1] != "" {
		t.Errorf("live partials = %q", h.sink.partials)
	}
}

func TestSettledPartialIsTranslatedOnce(t *testing.T) {
	h := newHarness(t, 3, recognizer.PartialStep("a"), recognizer.PartialStep("ab"), recognizer.PartialStep("ab"))
	h.start(t, "m")

	if got := h.sink.next(t, h.sink.translations, "translation"); got != "[es] ab" {
		t.Errorf("got %q", got)
	}
	h.sink.none(t, h.sink.translations, "translation", 200*time.Millisecond)
	if calls := h.tr.Calls(); len(calls) != 1 {
		t.Errorf("provider calls = %q", calls)
	}
}

func TestStopDiscardsHeldPartial(t *testing.T) {
	h := newHarness(t, 1, recognizer.PartialStep("never sent"))
	h.at.opts.Debounce = time.Hour
	h.start(t, "m")

	waitFor(t, "partial", func() bool { return h.dec.Consumed() == 1 })
	h.at.Stop()
	h.at.Wait()

	if calls := h.tr.Calls(); len(calls) != 0 {
		t.Errorf("translated after stop: %q", calls)
	}
	if h.at.Active() {
		t.Error("still active after Stop")
	}
	if !h.dec.Closed() {
		t.Error("decoder not closed")
	}
	if n := h.actx.OpenCount(); n != 0 {
		t.Errorf("%d captures left open", n)
	}
}

func TestStartWithoutDevice(t *testing.T) {
	h := newHarness(t, 0)
	if err := h.at.Start(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("got %v, want ErrNoDevice", err)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	h := newHarness(t, 0)
	h.at.Stop()
	h.start(t, "m")
	if err := h.at.Start(); err != nil {
		t.Fatal(err)
	}
	if n := len(h.actx.Captures()); n != 2 { // probe + session
		t.Errorf("captures = %d, want 2", n)
	}
	h.at.Stop()
	h.at.Stop()
	if h.at.Active() {
		t.Error("active after Stop")
	}
}

func TestSelectReusesModelForSameRate(t *testing.T) {
	h := newHarness(t, 0)
	if _, err := h.at.SelectDevice("m"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.at.SelectDevice("m2"); err != nil {
		t.Fatal(err)
	}
	if h.loads != 1 {
		t.Errorf("model loaded %d times, want 1", h.loads)
	}
	cfg, err := h.at.SelectDevice("v")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 16000 || cfg.Channels != 1 || !cfg.Virtual {
		t.Errorf("virtual config = %+v", cfg)
	}
	if h.loads != 2 {
		t.Errorf("model loaded %d times after rate change, want 2", h.loads)
	}
	if !h.models[0].Closed() {
		t.Error("replaced model not closed")
	}
}

func TestSelectModelMissingKeepsPrevious(t *testing.T) {
	h := newHarness(t, 0)
	if _, err := h.at.SelectDevice("m"); err != nil {
		t.Fatal(err)
	}
	h.loadErr = recognizer.ErrModelMissing
	if _, err := h.at.SelectDevice("v"); !errors.Is(err, recognizer.ErrModelMissing) {
		t.Fatalf("got %v, want ErrModelMissing", err)
	}
	cfg, ok := h.at.Selected()
	if !ok || cfg.Device.ID() != "m" {
		t.Errorf("selection = %+v, %v", cfg, ok)
	}
}

func TestSelectProbeFailure(t *testing.T) {
	h := newHarness(t, 0)
	if _, err := h.at.SelectDevice("b"); !errors.Is(err, audio.ErrDeviceUnavailable) {
		t.Fatalf("got %v, want ErrDeviceUnavailable", err)
	}
	if _, ok := h.at.Selected(); ok {
		t.Error("failed selection was committed")
	}
	if len(h.models) != 1 || !h.models[0].Closed() {
		t.Error("model loaded for failed selection was not released")
	}
}

func TestSelectWhileActiveRestarts(t *testing.T) {
	h := newHarness(t, 0)
	h.start(t, "m")
	if _, err := h.at.SelectDevice("m2"); err != nil {
		t.Fatal(err)
	}
	if !h.at.Active() {
		t.Fatal("not active after switching devices")
	}
	if n := h.actx.OpenCount(); n != 1 {
		t.Errorf("open captures = %d, want 1", n)
	}
}

func TestStreamFaultGoesIdle(t *testing.T) {
	h := newHarness(t, 0)
	h.start(t, "m")
	if !<-h.sink.states {
		t.Fatal("first state change was not active")
	}

	caps := h.actx.Captures()
	caps[len(caps)-1].Fail()

	msg := h.sink.next(t, h.sink.errs, "error")
	if !strings.Contains(msg, "stream fault") {
		t.Errorf("error = %q", msg)
	}
	select {
	case active := <-h.sink.states:
		if active {
			t.Error("state went active after fault")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no inactive state after fault")
	}
	waitFor(t, "idle", func() bool { return !h.at.Active() })
	if n := h.actx.OpenCount(); n != 0 {
		t.Errorf("%d captures left open", n)
	}
}

func TestDecodeErrorIsNonFatal(t *testing.T) {
	h := newHarness(t, 3,
		recognizer.PartialStep("lost"),
		recognizer.FakeStep{Err: recognizer.ErrDecode},
		recognizer.FinalStep("after"),
	)
	h.start(t, "m")

	if msg := h.sink.next(t, h.sink.errs, "error"); !strings.Contains(msg, "malformed") {
		t.Errorf("error = %q", msg)
	}
	if got := h.sink.next(t, h.sink.translations, "translation"); got != "[es] after" {
		t.Errorf("got %q", got)
	}
	if !h.at.Active() {
		t.Error("decode error ended the session")
	}
}

func TestTranslationFailureIsDelivered(t *testing.T) {
	h := newHarness(t, 1, recognizer.FinalStep("hello"))
	h.tr.Err = errors.New("offline")
	h.start(t, "m")

	got := h.sink.next(t, h.sink.translations, "translation")
	if !strings.HasPrefix(got, "Error: ") || !strings.Contains(got, "offline") {
		t.Errorf("got %q", got)
	}
	if !h.at.Active() {
		t.Error("translation failure ended the session")
	}
}

func TestDevicesExcludesBroken(t *testing.T) {
	h := newHarness(t, 0)
	for _, d := range h.at.Devices() {
		if d.ID() == "b" {
			t.Errorf("broken device listed: %+v", d)
		}
	}
}

func TestDevicesHostFailureReported(t *testing.T) {
	h := newHarness(t, 0)
	h.actx.FailListing(errors.New("no host"))
	if got := h.at.Devices(); len(got) != 0 {
		t.Errorf("got %d devices", len(got))
	}
	h.sink.next(t, h.sink.errs, "error")
}
