package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"traductor/audio"
	"traductor/clipboard"
	"traductor/config"
	"traductor/log"
	"traductor/ocr"
	"traductor/pipeline"
	"traductor/translate"
)

var errOCRBusy = errors.New("a screen translation is already running")

const devicePollInterval = 3 * time.Second

type langPairs struct {
	Audio, OCR, Manual translate.LanguagePair
}

func parsePairs(l config.Langs) (langPairs, error) {
	var p langPairs
	var err error
	if p.Audio, err = translate.ParsePair(l.Audio); err != nil {
		return p, fmt.Errorf("langs.audio: %w", err)
	}
	if p.OCR, err = translate.ParsePair(l.OCR); err != nil {
		return p, fmt.Errorf("langs.ocr: %w", err)
	}
	if p.Manual, err = translate.ParsePair(l.Manual); err != nil {
		return p, fmt.Errorf("langs.manual: %w", err)
	}
	return p, nil
}

type appConfig struct {
	Pairs      langPairs
	Pipeline   pipeline.Options
	Grabber    ocr.Grabber
	OCREngine  ocr.Engine
	Threshold  uint8
	DebugImage string
	Copy       func(text string) error
}

// app ties the three translation paths (audio, screen region, typed text)
// to whichever display is running.
type app struct {
	actx   audio.Context
	audio  *pipeline.AudioTranslator
	ocr    *ocr.Pipeline
	manual *translate.Dispatcher
	pairs  langPairs
	copyFn func(string) error

	sinkMu sync.RWMutex
	sink   EventSink

	ocrBusy atomic.Bool

	mu   sync.Mutex
	last string
}

func newApp(actx audio.Context, tr translate.Translator, cfg appConfig) *app {
	a := &app{actx: actx, pairs: cfg.Pairs, copyFn: cfg.Copy, sink: nopSink{}}
	if a.copyFn == nil {
		a.copyFn = clipboard.Copy
	}

	opts := cfg.Pipeline
	opts.Pair = cfg.Pairs.Audio
	a.audio = pipeline.New(actx, tr, opts, pipeline.Callbacks{
		OnTranslation: func(text string) {
			a.remember(text)
			a.events().AudioTranslation(text)
		},
		OnError:   func(msg string) { a.events().Error(msg) },
		OnPartial: func(text string) { a.events().Partial(text) },
		OnLevel:   func(rms float64) { a.events().AudioLevel(rms) },
		OnState:   func(active bool) { a.events().CaptureState(active) },
	})

	a.ocr = &ocr.Pipeline{
		Grabber:    cfg.Grabber,
		Engine:     cfg.OCREngine,
		Dispatcher: translate.NewDispatcher(tr, "ocr", nil),
		Pair:       cfg.Pairs.OCR,
		Threshold:  cfg.Threshold,
		DebugPath:  cfg.DebugImage,
	}
	a.manual = translate.NewDispatcher(tr, "manual", func(text string) {
		a.remember(text)
		a.events().ManualResult(text)
	})
	return a
}

func (a *app) setSink(s EventSink) {
	a.sinkMu.Lock()
	a.sink = s
	a.sinkMu.Unlock()
}

func (a *app) events() EventSink {
	a.sinkMu.RLock()
	defer a.sinkMu.RUnlock()
	return a.sink
}

func (a *app) remember(text string) {
	if strings.HasPrefix(text, "Error: ") {
		return
	}
	a.mu.Lock()
	a.last = text
	a.mu.Unlock()
}

func (a *app) lastTranslation() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *app) Capturing() bool { return a.audio.Active() }

func (a *app) StartCapture() {
	if err := a.audio.Start(); err != nil {
		log.Errorf("start capture: %v", err)
		a.events().Error(err.Error())
	}
}

func (a *app) StopCapture() { a.audio.Stop() }

func (a *app) ToggleCapture() {
	if a.audio.Active() {
		a.StopCapture()
		return
	}
	a.StartCapture()
}

// RefreshDevices re-enumerates and publishes the usable devices.
func (a *app) RefreshDevices() []audio.Device {
	devices := a.audio.Devices()
	a.events().Devices(devices, a.selectedID())
	return devices
}

func (a *app) selectedID() string {
	if cfg, ok := a.audio.Selected(); ok {
		return cfg.Device.ID()
	}
	return ""
}

func (a *app) SelectDevice(id string) error {
	cfg, err := a.audio.SelectDevice(id)
	if err != nil {
		a.events().Error(err.Error())
		return err
	}
	a.events().DeviceLine(deviceLine(cfg))
	return nil
}

// SelectByName picks the first usable device whose id or name matches
// query, ignoring case; an exact match wins over a substring match.
func (a *app) SelectByName(query string) error {
	devices := a.audio.Devices()
	if d, ok := matchDevice(devices, query); ok {
		return a.SelectDevice(d.ID())
	}
	err := fmt.Errorf("%w: no usable device matches %q", audio.ErrDeviceUnavailable, query)
	a.events().Error(err.Error())
	return err
}

func matchDevice(devices []audio.Device, query string) (audio.Device, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, d := range devices {
		if strings.ToLower(d.ID()) == q || strings.ToLower(d.Info.Name) == q {
			return d, true
		}
	}
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Info.Name), q) {
			return d, true
		}
	}
	return audio.Device{}, false
}

func deviceLine(cfg audio.DeviceConfig) string {
	layout := "mono"
	if cfg.Channels > 1 {
		layout = "stereo"
	}
	line := fmt.Sprintf("%s · %d Hz %s", cfg.Device.Label, cfg.SampleRate, layout)
	if audio.IsBluetooth(cfg.Device.Info.Name) {
		line += " (BT!)"
	}
	return line
}

// TranslateManual starts a typed-text translation and returns the status
// to show until ManualResult arrives.
func (a *app) TranslateManual(text string) string {
	return a.manual.Submit(text, a.pairs.Manual)
}

// TranslateRegion runs OCR on r in the background. Only one screen
// translation runs at a time.
func (a *app) TranslateRegion(r ocr.Region) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if !a.ocrBusy.CompareAndSwap(false, true) {
		return errOCRBusy
	}
	a.events().OCRBusy(true)
	a.ocr.RunAsync(r, func(text string) {
		a.remember(text)
		a.ocrBusy.Store(false)
		a.events().OCRBusy(false)
		a.events().OCRResult(text)
	})
	return nil
}

func (a *app) CopyLast() error {
	return a.copyFn(a.lastTranslation())
}

// watchDevices polls the host for device changes until ctx ends. When
// the selected device disappears, capture stops.
func (a *app) watchDevices(ctx context.Context, interval time.Duration) {
	last, _ := a.deviceIDs()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			ids, err := a.deviceIDs()
			if err != nil || slices.Equal(last, ids) {
				continue
			}
			last = ids

			if cfg, ok := a.audio.Selected(); ok && !slices.Contains(ids, cfg.Device.ID()) {
				log.Warnf("device disconnected: %s", cfg.Device.Info.Name)
				a.audio.Stop()
				a.events().Error("device disconnected: " + cfg.Device.Info.Name)
			}
			a.RefreshDevices()
		}
	}()
}

func (a *app) deviceIDs() ([]string, error) {
	infos, err := a.actx.Devices()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids, nil
}

// Close stops capture, releases the model and waits for in-flight
// translations to deliver.
func (a *app) Close() {
	a.audio.Close()
	a.audio.Wait()
	a.manual.Wait()
	a.ocr.Dispatcher.Wait()
}
