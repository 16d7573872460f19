// Package pipeline runs live audio through speech recognition and the
// debounce engine, handing settled text to a translation dispatcher.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"traductor/audio"
	"traductor/log"
	"traductor/recognizer"
	"traductor/translate"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var ErrNoDevice = errors.New("no audio device selected")

const (
	DefaultPollTimeout = 100 * time.Millisecond
	DefaultQueueSize   = 64
)

// Recorder receives every preprocessed frame of a session, e.g. to dump
// it to disk.
type Recorder interface {
	Write(samples []int16) error
	Close() error
}

type Options struct {
	Debounce    time.Duration
	PollTimeout time.Duration
	QueueSize   int
	BlockSize   uint32
	Pair        translate.LanguagePair
	Recognizer  recognizer.Config

	// Optional hooks, mostly for tests.
	Now       func() time.Time
	LoadModel func(cfg recognizer.Config, sampleRate uint32) (recognizer.Model, error)
	Record    func(sessionID string, sampleRate uint32) (Recorder, error)
	Liveness  time.Duration
}

// Callbacks are invoked from worker goroutines. Receivers must marshal
// onto their own thread, tolerate calls after Stop, and never call back
// into Start or Stop synchronously.
type Callbacks struct {
	OnTranslation func(text string)
	OnError       func(msg string)
	OnPartial     func(text string)
	OnLevel       func(rms float64)
	OnState       func(active bool)
}

type session struct {
	id       string
	cfg      audio.DeviceConfig
	stream   *audio.Stream
	queue    *audio.FrameQueue
	adapter  *recognizer.Adapter
	recorder Recorder
	cancel   context.CancelFunc
	done     chan struct{}
	stats    log.SessionStats
}

// AudioTranslator owns device selection and at most one capture session.
type AudioTranslator struct {
	actx     audio.Context
	catalog  *audio.Catalog
	dispatch *translate.Dispatcher
	opts     Options
	cb       Callbacks

	ctl   sync.Mutex // serializes Select/Start/Stop
	cfg   *audio.DeviceConfig
	model recognizer.Model

	mu   sync.Mutex
	sess *session
}

func New(actx audio.Context, tr translate.Translator, opts Options, cb Callbacks) *AudioTranslator {
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.PollTimeout == 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.QueueSize == 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Liveness == 0 {
		opts.Liveness = audio.DefaultLivenessInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LoadModel == nil {
		opts.LoadModel = recognizer.LoadModel
	}
	if cb.OnTranslation == nil {
		cb.OnTranslation = func(string) {}
	}
	if cb.OnError == nil {
		cb.OnError = func(string) {}
	}
	if cb.OnPartial == nil {
		cb.OnPartial = func(string) {}
	}
	if cb.OnLevel == nil {
		cb.OnLevel = func(float64) {}
	}
	if cb.OnState == nil {
		cb.OnState = func(bool) {}
	}

	t := &AudioTranslator{actx: actx, opts: opts, cb: cb}
	t.catalog = audio.NewCatalog(actx, audio.NameClassifier{},
		audio.WithBlockSize(opts.BlockSize),
		audio.WithProbeHook(func(info audio.DeviceInfo, err error) {
			log.DeviceProbe(info.Name, info.HostAPI, err)
		}),
		audio.WithFailureHook(t.report),
	)
	t.dispatch = translate.NewDispatcher(tr, "audio", cb.OnTranslation)
	return t
}

// Devices lists the capture endpoints that currently open.
func (t *AudioTranslator) Devices() []audio.Device {
	return t.catalog.List()
}

// SelectDevice resolves and probes the device, loading a recognition model
// for its sample rate unless the current one already matches. On failure
// the previous selection stays in place. An active session is restarted
// on the new device.
func (t *AudioTranslator) SelectDevice(id string) (audio.DeviceConfig, error) {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	cfg, err := t.catalog.Resolve(id)
	if err != nil {
		return audio.DeviceConfig{}, err
	}

	wasActive := t.session() != nil
	if wasActive {
		t.stopLocked()
	}

	model := t.model
	fresh := false
	if model == nil || model.SampleRate() != cfg.SampleRate {
		model, err = t.opts.LoadModel(t.opts.Recognizer, cfg.SampleRate)
		if err != nil {
			return audio.DeviceConfig{}, t.restoreAfter(wasActive, err)
		}
		fresh = true
	}

	if err := t.catalog.Probe(cfg); err != nil {
		if fresh {
			model.Close()
		}
		return audio.DeviceConfig{}, t.restoreAfter(wasActive, err)
	}

	if fresh && t.model != nil {
		t.model.Close()
	}
	t.model = model
	t.cfg = &cfg
	log.Infof("selected %s (%s, %d Hz, %d ch)", cfg.Device.Info.Name, cfg.Device.Class, cfg.SampleRate, cfg.Channels)

	if wasActive {
		if err := t.startLocked(); err != nil {
			t.report(err)
		}
	}
	return cfg, nil
}

// restoreAfter restarts the previous session after a failed selection and
// returns err.
func (t *AudioTranslator) restoreAfter(wasActive bool, err error) error {
	if wasActive {
		if rerr := t.startLocked(); rerr != nil {
			t.report(rerr)
		}
	}
	return err
}

// Selected returns the committed device configuration, if any.
func (t *AudioTranslator) Selected() (audio.DeviceConfig, bool) {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	if t.cfg == nil {
		return audio.DeviceConfig{}, false
	}
	return *t.cfg, true
}

func (t *AudioTranslator) Pair() translate.LanguagePair { return t.opts.Pair }

// Start begins capturing from the selected device. Starting an active
// translator is a no-op.
func (t *AudioTranslator) Start() error {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	return t.startLocked()
}

func (t *AudioTranslator) startLocked() error {
	if t.session() != nil {
		return nil
	}
	if t.cfg == nil {
		return ErrNoDevice
	}
	if t.model == nil {
		return fmt.Errorf("%w: no model loaded", recognizer.ErrModelMissing)
	}

	ctx, cancel := context.WithCancel(context.Background())
	dec, err := t.model.NewDecoder(ctx)
	if err != nil {
		cancel()
		return err
	}

	s := &session{
		id:      uuid.NewString(),
		cfg:     *t.cfg,
		queue:   audio.NewFrameQueue(t.opts.QueueSize),
		adapter: recognizer.NewAdapter(dec, t.cfg.SampleRate),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	s.stream = audio.NewStream(t.actx,
		audio.WithLivenessInterval(t.opts.Liveness),
		audio.WithDropHook(log.FrameDropped),
	)
	if t.opts.Record != nil {
		rec, err := t.opts.Record(s.id, s.cfg.SampleRate)
		if err != nil {
			log.Warnf("recording disabled: %v", err)
		} else {
			s.recorder = rec
		}
	}

	if err := s.stream.Start(s.cfg, s.queue); err != nil {
		cancel()
		dec.Close()
		if s.recorder != nil {
			s.recorder.Close()
		}
		return err
	}

	t.mu.Lock()
	t.sess = s
	t.mu.Unlock()
	log.SessionStart(s.id, s.cfg.Device.Info.Name, t.model.Backend(), s.cfg.SampleRate, s.cfg.Channels)
	t.cb.OnState(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watch(gctx, s.stream) })
	g.Go(func() error { return t.process(gctx, s) })
	go t.finish(s, g)
	return nil
}

// Stop ends the active session and waits until no further frame will be
// processed. The held partial, if any, is discarded. Stopping an idle
// translator is a no-op.
func (t *AudioTranslator) Stop() {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	t.stopLocked()
}

func (t *AudioTranslator) stopLocked() {
	s := t.session()
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (t *AudioTranslator) Active() bool {
	return t.session() != nil
}

// Close stops capture and releases the model. In-flight translations
// still deliver.
func (t *AudioTranslator) Close() {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	t.stopLocked()
	if t.model != nil {
		t.model.Close()
		t.model = nil
	}
}

// Wait blocks until every dispatched translation has delivered.
func (t *AudioTranslator) Wait() { t.dispatch.Wait() }

func (t *AudioTranslator) session() *session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sess
}

func watch(ctx context.Context, stream *audio.Stream) error {
	select {
	case <-ctx.Done():
		return nil
	case <-stream.Done():
		return stream.Err()
	}
}

func (t *AudioTranslator) finish(s *session, g *errgroup.Group) {
	err := g.Wait()
	s.cancel()
	s.stream.Stop()
	if cerr := s.adapter.Close(); cerr != nil {
		log.Warnf("closing recognizer: %v", cerr)
	}
	if s.recorder != nil {
		if cerr := s.recorder.Close(); cerr != nil {
			log.Warnf("closing recording: %v", cerr)
		}
	}
	s.stats.Frames = s.stream.Frames()
	s.stats.Dropped = s.queue.Dropped()
	s.stats.Unprocessed = s.queue.Drain()
	s.stats.AudioSecs = s.adapter.Duration()
	log.SessionEnd(s.id, s.stats)

	t.mu.Lock()
	if t.sess == s {
		t.sess = nil
	}
	t.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		t.report(err)
	}
	t.cb.OnState(false)
	close(s.done)
}

func (t *AudioTranslator) process(ctx context.Context, s *session) error {
	eng := NewEngine(t.opts.Debounce, t.opts.Now)
	defer eng.Stop()

	live := ""
	for ctx.Err() == nil {
		frame, err := s.queue.Pop(ctx, t.opts.PollTimeout)
		if errors.Is(err, audio.ErrQueueEmpty) {
			if text, ok := eng.Poll(); ok {
				t.send(s, text)
			}
			continue
		}
		if err != nil || ctx.Err() != nil {
			return nil
		}

		pcm := audio.Preprocess(frame)
		t.cb.OnLevel(audio.RMS(pcm))
		if s.recorder != nil {
			if err := s.recorder.Write(pcm); err != nil {
				log.Warnf("recording stopped: %v", err)
				s.recorder.Close()
				s.recorder = nil
			}
		}

		res, err := s.adapter.Accept(pcm)
		if err != nil {
			if !errors.Is(err, recognizer.ErrDecode) {
				return err
			}
			s.stats.Errors++
			eng.Reset()
			t.report(err)
			continue
		}

		switch res.Kind {
		case recognizer.Partial:
			if res.Text != live {
				live = res.Text
				s.stats.Partials++
				t.cb.OnPartial(live)
			}
		case recognizer.Final:
			s.stats.Finals++
			if live != "" {
				live = ""
				t.cb.OnPartial("")
			}
		}
		if text, ok := eng.Observe(res); ok {
			t.send(s, text)
		}
	}
	return nil
}

func (t *AudioTranslator) send(s *session, text string) {
	s.stats.Dispatched++
	t.dispatch.TranslateAsync(text, t.opts.Pair)
}

func (t *AudioTranslator) report(err error) {
	log.Error(err.Error())
	t.cb.OnError(err.Error())
}
