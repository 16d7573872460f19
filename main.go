package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"traductor/audio"
	"traductor/config"
	"traductor/doctor"
	"traductor/encoder"
	"traductor/hotkey"
	"traductor/log"
	"traductor/models"
	"traductor/ocr"
	"traductor/pipeline"
	"traductor/recognizer"
	"traductor/shutdown"
	"traductor/translate"
)

var version = "dev"

// wholeImage stands in for a region when -ocr is given none; cropping
// clamps it to the image bounds.
var wholeImage = ocr.Region{W: 1 << 20, H: 1 << 20}

type options struct {
	gui           bool
	configPath    string
	logPath       string
	device        string
	setup         bool
	listDevices   bool
	doctor        bool
	version       bool
	dump          string
	ocrImage      string
	region        string
	downloadModel bool
	replay        string
}

func parseFlags(args []string, out io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("traductor", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.BoolVar(&o.gui, "gui", false, "Show the floating overlay window instead of the terminal UI")
	fs.StringVar(&o.configPath, "config", "", "Config file (default: config.yaml in "+config.Dir()+")")
	fs.StringVar(&o.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&o.device, "device", "", "Use the named audio input device")
	fs.BoolVar(&o.setup, "setup", false, "Pick the audio input device interactively")
	fs.BoolVar(&o.listDevices, "list-devices", false, "List usable audio input devices and exit")
	fs.BoolVar(&o.doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")
	fs.StringVar(&o.dump, "dump", "", "Write the audio fed to the recognizer to this FLAC file, one per session")
	fs.StringVar(&o.ocrImage, "ocr", "", "Translate the text in this screenshot and exit")
	fs.StringVar(&o.region, "region", "", "Screen region x,y,w,h for -ocr and the OCR key")
	fs.BoolVar(&o.downloadModel, "download-model", false, "Download the speech model and exit")
	fs.StringVar(&o.replay, "replay", "", "Translate a mono 16-bit WAV file in real time instead of a live device")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return o, nil
}

func initCrashLog() {
	f, err := os.OpenFile(log.CrashLogPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
	f.Close()
}

// run is the whole program; it returns the process exit code.
func run() int {
	o, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if o.version {
		fmt.Printf("traductor %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(o.logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	} else {
		initCrashLog()
	}

	cfg, err := config.Load(o.configPath, config.Dir(), recognizer.DefaultBackend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if o.device != "" {
		cfg.Audio.Device = o.device
	}
	if o.region != "" {
		cfg.OCR.DefaultRegion = o.region
	}
	pairs, err := parsePairs(cfg.Langs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	if cfg.File != "" {
		log.Infof("config: %s", cfg.File)
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	if o.downloadModel {
		if _, err := models.Ensure(ctx, cfg.Recognizer.ModelPath, cfg.Recognizer.ModelURL, os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Speech model ready at %s\n", cfg.Recognizer.ModelPath)
		return 0
	}

	tr, err := translate.New(translate.Config{
		Provider:      cfg.Translate.Provider,
		OpenAIKey:     cfg.Translate.OpenAIKey,
		OpenAIModel:   cfg.Translate.OpenAIModel,
		OpenAIBaseURL: cfg.Translate.OpenAIBaseURL,
		Timeout:       cfg.Translate.Timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	tess := ocr.Tesseract{Cmd: cfg.OCR.TesseractCmd, Lang: cfg.OCR.Lang}

	if o.ocrImage != "" {
		return runOCR(ctx, o.ocrImage, cfg, tess, tr, pairs.OCR)
	}

	recCfg := recognizer.Config{
		Backend:       cfg.Recognizer.Backend,
		ModelPath:     cfg.Recognizer.ModelPath,
		DeepgramKey:   cfg.Recognizer.DeepgramKey,
		DeepgramModel: cfg.Recognizer.DeepgramModel,
		Language:      pairs.Audio.Source,
	}

	var actx audio.Context
	var replay audio.WAV
	switch {
	case o.replay != "":
		replay, err = audio.LoadWAV(o.replay)
		if err == nil && replay.Channels != 1 {
			err = fmt.Errorf("%s: replay expects mono audio, got %d channels", o.replay, replay.Channels)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fake := audio.NewFakeContext(audio.FakeDevice{Info: audio.DeviceInfo{
			ID:                "replay",
			Name:              filepath.Base(o.replay),
			MaxInputChannels:  1,
			DefaultSampleRate: replay.SampleRate,
		}})
		fake.SetPCM(replay.PCM, int(replay.SampleRate/10), 100*time.Millisecond)
		actx = fake
	case guiAudioCtx != nil:
		actx = guiAudioCtx
	default:
		actx, err = audio.NewContext()
		if err != nil {
			log.Errorf("audio context init error: %v", err)
			fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
			return 1
		}
	}
	defer actx.Close()

	if o.listDevices {
		for _, d := range audio.NewCatalog(actx, nil).List() {
			fmt.Printf("%-40s %-10s %s\n", d.Label, d.Class, d.ID())
		}
		return 0
	}
	if o.doctor {
		return doctor.Main(doctor.Deps{
			Audio:      actx,
			Recognizer: recCfg,
			Translator: tr,
			Pair:       pairs.Audio,
			OCR:        tess.Check,
			Hotkey:     hotkey.Diagnose,
		})
	}

	if strings.EqualFold(recCfg.Backend, "vosk") && !models.Present(recCfg.ModelPath) {
		fmt.Fprintln(os.Stderr, "Downloading speech model...")
		if _, err := models.Ensure(ctx, recCfg.ModelPath, cfg.Recognizer.ModelURL, os.Stderr); err != nil {
			log.Warnf("model download failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	popts := pipeline.Options{
		Debounce:    cfg.Pipeline.Debounce,
		PollTimeout: cfg.Pipeline.PollTimeout,
		QueueSize:   cfg.Audio.QueueSize,
		BlockSize:   cfg.Audio.BlockSize,
		Recognizer:  recCfg,
	}
	if o.dump != "" {
		popts.Record = func(sessionID string, rate uint32) (pipeline.Recorder, error) {
			rec, err := encoder.NewFileRecorder(encoder.SessionPath(o.dump, sessionID), rate)
			if err != nil {
				return nil, err
			}
			log.Infof("recording session to %s", rec.Path())
			return rec, nil
		}
	}

	var region *ocr.Region
	if cfg.OCR.DefaultRegion != "" {
		r, err := ocr.ParseRegion(cfg.OCR.DefaultRegion)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: ocr.region: %v\n", err)
			return 1
		}
		region = &r
	}

	a := newApp(actx, tr, appConfig{
		Pairs:      pairs,
		Pipeline:   popts,
		Grabber:    ocr.ScreenGrabber{},
		OCREngine:  tess,
		Threshold:  uint8(cfg.OCR.Threshold),
		DebugImage: cfg.OCR.DebugImage,
	})
	defer a.Close()

	if o.replay != "" {
		return runReplay(ctx, a, replay.Duration()+cfg.Pipeline.Debounce)
	}

	if err := chooseDevice(a, o.setup, cfg.Audio.Device); err != nil {
		log.Warnf("device selection: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	a.watchDevices(ctx, devicePollInterval)

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey register error: %v", err)
	} else {
		defer hk.Unregister()
		sw := &hotkey.Switch{Active: a.Capturing, Start: a.StartCapture, Stop: a.StopCapture}
		go sw.Run(ctx, hk)
	}

	win := newWindowState(cfg.UI.TextColor, cfg.UI.Opacity, cfg.UI.Expanded)
	line := ""
	if sel, ok := a.audio.Selected(); ok {
		line = deviceLine(sel)
	}

	if guiMode {
		sink, done := startOverlay(a, &win, pairs, region, line)
		a.setSink(sink)
		select {
		case <-ctx.Done():
		case <-done:
		}
		return 0
	}

	m := newTUIModel(a, win, pairs, region)
	m.deviceLine = line
	p := NewTUIProgram(m)
	a.setSink(tuiSink{p})
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	if _, err := p.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// chooseDevice applies -setup, then the configured device name, then
// falls back to the first usable device.
func chooseDevice(a *app, setup bool, name string) error {
	if setup {
		d, err := audio.PickDevice(a.audio.Devices())
		if err != nil {
			return err
		}
		return a.SelectDevice(d.ID())
	}
	if name != "" {
		return a.SelectByName(name)
	}
	devices := a.audio.Devices()
	if len(devices) == 0 {
		return fmt.Errorf("%w: no usable input devices", audio.ErrDeviceUnavailable)
	}
	return a.SelectDevice(devices[0].ID())
}

func runOCR(ctx context.Context, path string, cfg *config.Config, engine ocr.Engine, tr translate.Translator, pair translate.LanguagePair) int {
	r := wholeImage
	if cfg.OCR.DefaultRegion != "" {
		var err error
		if r, err = ocr.ParseRegion(cfg.OCR.DefaultRegion); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	p := &ocr.Pipeline{
		Grabber:    ocr.FileGrabber{Path: path},
		Engine:     engine,
		Dispatcher: translate.NewDispatcher(tr, "ocr", nil),
		Pair:       pair,
		Threshold:  uint8(cfg.OCR.Threshold),
		DebugPath:  cfg.OCR.DebugImage,
	}
	out := p.Run(ctx, r)
	fmt.Println(out)
	if strings.HasPrefix(out, "Error: ") {
		return 1
	}
	return 0
}

// stdoutSink prints audio translations for headless runs.
type stdoutSink struct {
	nopSink
	out, errOut io.Writer
}

func (s stdoutSink) AudioTranslation(text string) { fmt.Fprintln(s.out, text) }
func (s stdoutSink) Error(msg string)             { fmt.Fprintf(s.errOut, "Error: %s\n", msg) }

func runReplay(ctx context.Context, a *app, length time.Duration) int {
	a.setSink(stdoutSink{out: os.Stdout, errOut: os.Stderr})
	if err := a.SelectDevice("replay"); err != nil {
		return 1
	}
	a.StartCapture()
	if !a.Capturing() {
		return 1
	}
	select {
	case <-ctx.Done():
	case <-time.After(length + time.Second):
	}
	a.StopCapture()
	return 0
}
