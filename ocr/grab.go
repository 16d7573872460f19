package ocr

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/kbinani/screenshot"
)

// Grabber returns the pixels inside a screen region.
type Grabber interface {
	Grab(ctx context.Context, r Region) (image.Image, error)
}

// ScreenGrabber reads the live desktop.
type ScreenGrabber struct{}

func (ScreenGrabber) Grab(_ context.Context, r Region) (image.Image, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(r.Rect())
	if err != nil {
		return nil, fmt.Errorf("capturing screen: %w", err)
	}
	return img, nil
}

// FileGrabber crops regions out of a saved screenshot, for -ocr and tests.
type FileGrabber struct {
	Path string
}

func (g FileGrabber) Grab(_ context.Context, r Region) (image.Image, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(g.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", g.Path, err)
	}
	return crop(img, r)
}

func crop(img image.Image, r Region) (image.Image, error) {
	rect := r.Rect().Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %s lies outside the %dx%d image", ErrEmptyRegion, r, img.Bounds().Dx(), img.Bounds().Dy())
	}
	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("cannot crop %T", img)
	}
	return sub.SubImage(rect), nil
}
