package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strings"
)

// Engine extracts text from an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Tesseract runs the tesseract binary on a temporary PNG.
type Tesseract struct {
	Cmd  string // defaults to "tesseract" on PATH
	Lang string // defaults to "eng"
}

func (t Tesseract) command() string {
	if t.Cmd != "" {
		return t.Cmd
	}
	return "tesseract"
}

func (t Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	f, err := os.CreateTemp("", "traductor-ocr-*.png")
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding ocr input: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	lang := t.Lang
	if lang == "" {
		lang = "eng"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.command(), f.Name(), "stdout", "-l", lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("tesseract: %w: %s", err, msg)
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return stdout.String(), nil
}

// Check reports whether the binary can be started.
func (t Tesseract) Check(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, t.command(), "--version").CombinedOutput()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s not found on PATH", t.command())
		}
		return "", err
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(first), nil
}
