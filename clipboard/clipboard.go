package clipboard

import (
	"errors"
	"strings"

	cb "github.com/atotto/clipboard"
)

var ErrNothingToCopy = errors.New("nothing to copy")

// Available reports whether the host has a clipboard utility atotto can
// drive (xclip, xsel or wl-clipboard on Linux).
func Available() bool { return !cb.Unsupported }

func Read() (string, error) {
	return cb.ReadAll()
}

// Copy places text on the system clipboard. Blank text is refused so a
// stray key press does not clobber the clipboard.
func Copy(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrNothingToCopy
	}
	return cb.WriteAll(text)
}
