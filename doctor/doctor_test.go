package doctor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"traductor/audio"
	"traductor/recognizer"
	"traductor/translate"
)

func deps(modelErr error, tr translate.Translator) Deps {
	return Deps{
		Audio: audio.NewFakeContext(
			audio.FakeDevice{Info: audio.DeviceInfo{ID: "m", Name: "USB Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000}},
			audio.FakeDevice{Info: audio.DeviceInfo{ID: "x", Name: "Dead Mic", MaxInputChannels: 1}, OpenErr: errors.New("busy")},
		),
		LoadModel: func(_ recognizer.Config, rate uint32) (recognizer.Model, error) {
			if modelErr != nil {
				return nil, modelErr
			}
			return &recognizer.FakeModel{Rate: rate}, nil
		},
		Translator: tr,
		Pair:       translate.LanguagePair{Source: "en", Target: "es"},
		OCR:        func(context.Context) (string, error) { return "tesseract 5.3.0", nil },
	}
}

func core(d Deps) []Check {
	var out []Check
	for _, c := range Checks(d) {
		if c.Name != "Clipboard" {
			out = append(out, c)
		}
	}
	return out
}

func TestRunAllPass(t *testing.T) {
	var buf bytes.Buffer
	code := Run(context.Background(), &buf, core(deps(nil, &translate.Fake{})))
	out := buf.String()
	if code != 0 {
		t.Fatalf("exit code %d\n%s", code, out)
	}
	for _, want := range []string{
		"[1/4] Audio devices",
		"USB Microphone",
		"Dead Mic",
		"1 usable",
		"fake backend configured",
		`"[es] Hello, how are you?"`,
		"tesseract 5.3.0",
		"All checks passed!",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunReportsFailures(t *testing.T) {
	var buf bytes.Buffer
	d := deps(recognizer.ErrModelMissing, &translate.Fake{Err: errors.New("offline")})
	code := Run(context.Background(), &buf, core(d))
	out := buf.String()
	if code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(out, "FAIL: speech model missing") {
		t.Errorf("model failure not reported\n%s", out)
	}
	if !strings.Contains(out, "2 of 4 checks failed") {
		t.Errorf("summary wrong\n%s", out)
	}
}

func TestRunNoDevices(t *testing.T) {
	d := deps(nil, &translate.Fake{})
	d.Audio = audio.NewFakeContext()
	msg, err := d.checkDevices(context.Background(), io.Discard)
	if err == nil {
		t.Errorf("passed with no devices: %s", msg)
	}
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	if code := Run(ctx, &buf, core(deps(nil, &translate.Fake{}))); code != 1 {
		t.Errorf("exit code %d, want 1", code)
	}
	if !strings.Contains(buf.String(), "Interrupted") {
		t.Error("interruption not reported")
	}
}
