package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"traductor/audio"
	"traductor/clipboard"
	"traductor/recognizer"
	"traductor/shutdown"
	"traductor/translate"
)

// Check is one diagnostic step. Run returns a short status line on success.
type Check struct {
	Name string
	Run  func(ctx context.Context, w io.Writer) (string, error)
}

// Deps carries what the standard checks exercise.
type Deps struct {
	Audio      audio.Context
	Recognizer recognizer.Config
	LoadModel  func(cfg recognizer.Config, sampleRate uint32) (recognizer.Model, error)
	Translator translate.Translator
	Pair       translate.LanguagePair
	OCR        func(ctx context.Context) (string, error)
	Hotkey     func() (string, error)
}

// Checks returns the standard checks in the order they run.
func Checks(d Deps) []Check {
	if d.LoadModel == nil {
		d.LoadModel = recognizer.LoadModel
	}
	checks := []Check{
		{"Audio devices", d.checkDevices},
		{"Speech model", d.checkModel},
		{"Translation", d.checkTranslation},
	}
	if d.OCR != nil {
		checks = append(checks, Check{"OCR engine", func(ctx context.Context, _ io.Writer) (string, error) {
			return d.OCR(ctx)
		}})
	}
	checks = append(checks, Check{"Clipboard", checkClipboard})
	if d.Hotkey != nil {
		checks = append(checks, Check{"Hotkey", func(context.Context, io.Writer) (string, error) {
			return d.Hotkey()
		}})
	}
	return checks
}

// Main runs the standard checks on stdout and returns the process exit code.
func Main(d Deps) int {
	ctx, stop := shutdown.Context(context.Background())
	defer stop()
	code := Run(ctx, os.Stdout, Checks(d))
	resetTerminal()
	return code
}

// Run executes checks in order and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, w io.Writer, checks []Check) int {
	fmt.Fprintln(w, "traductor doctor - system diagnostics")
	fmt.Fprintln(w, "=====================================")

	failed := 0
	for i, c := range checks {
		if ctx.Err() != nil {
			fmt.Fprintln(w, "\nInterrupted")
			return 1
		}
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		msg, err := c.Run(ctx, w)
		if err != nil {
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			failed++
			continue
		}
		fmt.Fprintf(w, "  PASS: %s\n", msg)
	}

	fmt.Fprintln(w)
	if failed == 0 {
		fmt.Fprintln(w, "All checks passed!")
		return 0
	}
	fmt.Fprintf(w, "%d of %d checks failed. See details above.\n", failed, len(checks))
	return 1
}

func (d Deps) checkDevices(_ context.Context, w io.Writer) (string, error) {
	var listErr error
	cat := audio.NewCatalog(d.Audio, audio.NameClassifier{},
		audio.WithProbeHook(func(info audio.DeviceInfo, err error) {
			status := "ok"
			if err != nil {
				status = err.Error()
			}
			fmt.Fprintf(w, "  - %s [%s, %d ch, %d Hz]: %s\n", info.Name, info.HostAPI, info.MaxInputChannels, info.DefaultSampleRate, status)
		}),
		audio.WithFailureHook(func(err error) { listErr = err }),
	)
	devices := cat.List()
	if listErr != nil {
		return "", listErr
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("no capture device could be opened")
	}
	labels := make([]string, len(devices))
	for i, dev := range devices {
		labels[i] = fmt.Sprintf("%s (%s)", dev.Label, dev.Class)
	}
	return fmt.Sprintf("%d usable: %s", len(devices), strings.Join(labels, ", ")), nil
}

func (d Deps) checkModel(_ context.Context, _ io.Writer) (string, error) {
	m, err := d.LoadModel(d.Recognizer, audio.VirtualSampleRate)
	if err != nil {
		return "", err
	}
	defer m.Close()
	if m.Backend() == "vosk" {
		return fmt.Sprintf("vosk model loaded from %s", d.Recognizer.ModelPath), nil
	}
	return fmt.Sprintf("%s backend configured", m.Backend()), nil
}

func (d Deps) checkTranslation(ctx context.Context, _ io.Writer) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	start := time.Now()
	out, err := d.Translator.Translate(ctx, "Hello, how are you?", d.Pair)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s: %q in %s", d.Translator.Name(), d.Pair, out, time.Since(start).Round(time.Millisecond)), nil
}

func checkClipboard(context.Context, io.Writer) (string, error) {
	if !clipboard.Available() {
		return "", fmt.Errorf("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}
	return "clipboard available", nil
}
