package ocr

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

var ErrEmptyRegion = errors.New("capture region has no area")

// Region is a screen rectangle in pixels.
type Region struct {
	X, Y, W, H int
}

// ParseRegion reads "x,y,w,h".
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("invalid region %q (want x,y,w,h)", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		v[i] = n
	}
	r := Region{X: v[0], Y: v[1], W: v[2], H: v[3]}
	return r, r.Validate()
}

func (r Region) Validate() error {
	if r.W <= 0 || r.H <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyRegion, r.W, r.H)
	}
	return nil
}

func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.W, r.H)
}
