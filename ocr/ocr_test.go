package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"traductor/translate"
)

type fakeEngine struct {
	text string
	err  error
	got  image.Image
}

func (e *fakeEngine) Recognize(_ context.Context, img image.Image) (string, error) {
	e.got = img
	return e.text, e.err
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := range 20 {
		for x := range 40 {
			c := color.RGBA{0, 0, 0, 255}
			if x >= 20 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "screen.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func newPipeline(t *testing.T, eng Engine, tr translate.Translator) *Pipeline {
	return &Pipeline{
		Grabber:    FileGrabber{Path: writeTestImage(t)},
		Engine:     eng,
		Dispatcher: translate.NewDispatcher(tr, "ocr", nil),
		Pair:       translate.LanguagePair{Source: "en", Target: "es"},
		Threshold:  DefaultThreshold,
	}
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("10, 20,300,40")
	if err != nil {
		t.Fatal(err)
	}
	if r != (Region{X: 10, Y: 20, W: 300, H: 40}) {
		t.Errorf("got %+v", r)
	}
	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,10", "0,0,10,-1"} {
		if _, err := ParseRegion(bad); err == nil {
			t.Errorf("ParseRegion(%q) accepted", bad)
		}
	}
	if _, err := ParseRegion("5,5,0,5"); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("zero width: got %v", err)
	}
}

func TestBinarize(t *testing.T) {
	img := image.NewGray(image.Rect(5, 5, 9, 6))
	img.Pix = []uint8{0, 80, 81, 255}
	out := Binarize(img, 80)
	if out.Bounds() != image.Rect(0, 0, 4, 1) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	want := []uint8{0, 0, 255, 255}
	for i, v := range want {
		if out.Pix[i] != v {
			t.Errorf("pixel %d = %d, want %d", i, out.Pix[i], v)
		}
	}
}

func TestFileGrabberCrops(t *testing.T) {
	g := FileGrabber{Path: writeTestImage(t)}
	img, err := g.Grab(context.Background(), Region{X: 18, Y: 0, W: 4, H: 2})
	if err != nil {
		t.Fatal(err)
	}
	bin := Binarize(img, DefaultThreshold)
	if got := bin.Pix[:4]; got[0] != 0 || got[1] != 0 || got[2] != 255 || got[3] != 255 {
		t.Errorf("cropped row = %v", got)
	}
	if _, err := g.Grab(context.Background(), Region{X: 100, Y: 100, W: 5, H: 5}); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("outside image: got %v", err)
	}
}

func TestCleanLines(t *testing.T) {
	got := CleanLines("Hello\n\n  \nworld\r\n\f")
	if got != "Hello\nworld" {
		t.Errorf("got %q", got)
	}
	if CleanLines("\n \n\f") != "" {
		t.Error("blank output not empty")
	}
}

func TestRunTranslates(t *testing.T) {
	eng := &fakeEngine{text: "Hello\n\nworld\n"}
	p := newPipeline(t, eng, &translate.Fake{})
	got := p.Run(context.Background(), Region{X: 0, Y: 0, W: 40, H: 20})
	if got != "[es] Hello\nworld" {
		t.Errorf("got %q", got)
	}
	if _, ok := eng.got.(*image.Gray); !ok {
		t.Errorf("engine saw %T, want thresholded gray image", eng.got)
	}
}

func TestRunMessages(t *testing.T) {
	tests := []struct {
		name string
		eng  *fakeEngine
		tr   *translate.Fake
		want string
	}{
		{"nothing", &fakeEngine{}, &translate.Fake{}, NoTextMessage},
		{"blank lines", &fakeEngine{text: "\n  \n\f"}, &translate.Fake{}, NoUsefulTextMessage},
		{"ocr failure", &fakeEngine{err: errors.New("no tessdata")}, &translate.Fake{}, "Error: no tessdata"},
		{"translation failure", &fakeEngine{text: "hi"}, &translate.Fake{Err: errors.New("offline")}, "Error: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, tt.eng, tt.tr)
			got := p.Run(context.Background(), Region{W: 10, H: 10})
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("got %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestRunBadRegion(t *testing.T) {
	p := newPipeline(t, &fakeEngine{text: "x"}, &translate.Fake{})
	got := p.Run(context.Background(), Region{W: 0, H: 10})
	if !strings.HasPrefix(got, "Error: ") {
		t.Errorf("got %q", got)
	}
}

func TestRunWritesDebugImage(t *testing.T) {
	p := newPipeline(t, &fakeEngine{text: "x"}, &translate.Fake{})
	p.DebugPath = filepath.Join(t.TempDir(), "debug_image.png")
	p.Run(context.Background(), Region{W: 10, H: 10})
	if _, err := os.Stat(p.DebugPath); err != nil {
		t.Error(err)
	}
}

func TestRunAsyncDelivers(t *testing.T) {
	p := newPipeline(t, &fakeEngine{text: "hi"}, &translate.Fake{})
	done := make(chan string, 1)
	p.RunAsync(Region{W: 10, H: 10}, func(s string) { done <- s })
	if got := <-done; got != "[es] hi" {
		t.Errorf("got %q", got)
	}
}

func TestTesseractCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in")
	}
	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.sh")
	os.WriteFile(ok, []byte("#!/bin/sh\nprintf 'Hello\\n\\fworld\\n'\n"), 0o755)
	bad := filepath.Join(dir, "bad.sh")
	os.WriteFile(bad, []byte("#!/bin/sh\necho 'Failed loading language' >&2\nexit 1\n"), 0o755)

	img := image.NewGray(image.Rect(0, 0, 2, 2))
	out, err := Tesseract{Cmd: ok}.Recognize(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	if CleanLines(out) != "Hello\nworld" {
		t.Errorf("got %q", out)
	}

	_, err = Tesseract{Cmd: bad}.Recognize(context.Background(), img)
	if err == nil || !strings.Contains(err.Error(), "Failed loading language") {
		t.Errorf("got %v", err)
	}

	if _, err := (Tesseract{Cmd: filepath.Join(dir, "missing")}).Check(context.Background()); err == nil {
		t.Error("Check passed for a missing binary")
	}
}
