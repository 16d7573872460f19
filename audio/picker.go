package audio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

var ErrPickCancelled = errors.New("device selection cancelled")

type pickAction int

const (
	pickMove pickAction = iota
	pickConfirm
	pickCancel
)

// pickKey maps one raw-mode read to a cursor move or a terminal action.
func pickKey(buf []byte, cursor, count int) (int, pickAction) {
	if len(buf) == 1 {
		switch buf[0] {
		case 13, 10: // Enter
			return cursor, pickConfirm
		case 3, 'q': // Ctrl+C
			return cursor, pickCancel
		case 'j':
			return min(cursor+1, count-1), pickMove
		case 'k':
			return max(cursor-1, 0), pickMove
		}
	}
	if len(buf) == 3 && buf[0] == 0x1b && buf[1] == '[' {
		switch buf[2] {
		case 'A':
			return max(cursor-1, 0), pickMove
		case 'B':
			return min(cursor+1, count-1), pickMove
		}
	}
	return cursor, pickMove
}

// PickDevice presents an interactive picker over devices on the terminal.
// A single device is returned without prompting.
func PickDevice(devices []Device) (Device, error) {
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("%w: no capture devices found", ErrDeviceUnavailable)
	}
	if len(devices) == 1 {
		return devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return Device{}, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	render := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select audio source (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			warn := ""
			if IsBluetooth(d.Info.Name) {
				warn = " \x1b[33m[⚠ Lower audio quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Label, warn)
			} else {
				fmt.Printf("    %s%s\r\n", d.Label, warn)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return Device{}, fmt.Errorf("reading input: %w", err)
		}
		var action pickAction
		cursor, action = pickKey(buf[:n], cursor, len(devices))
		switch action {
		case pickConfirm:
			fmt.Print("\r\n")
			return devices[cursor], nil
		case pickCancel:
			fmt.Print("\r\n")
			return Device{}, ErrPickCancelled
		}
		fmt.Printf("\x1b[%dA", len(devices)+2)
		render()
	}
}
