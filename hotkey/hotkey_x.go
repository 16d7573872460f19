package hotkey

import (
	"sync"

	"golang.design/x/hotkey"
)

type xHotkey struct {
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
	once    sync.Once
}

// New binds Combo through the host's shortcut API (X11, Cocoa or Win32).
func New() Hotkey {
	return &xHotkey{
		hk:      hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace),
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go h.forward(h.hk.Keydown(), h.keydown)
	go h.forward(h.hk.Keyup(), h.keyup)
	return nil
}

func (h *xHotkey) forward(src <-chan hotkey.Event, dst chan struct{}) {
	for {
		select {
		case <-h.stop:
			return
		case <-src:
			select {
			case dst <- struct{}{}:
			case <-h.stop:
				return
			}
		}
	}
}

func (h *xHotkey) Unregister() {
	h.once.Do(func() {
		close(h.stop)
		h.hk.Unregister()
	})
}

func (h *xHotkey) Keydown() <-chan struct{} {
	return h.keydown
}

func (h *xHotkey) Keyup() <-chan struct{} {
	return h.keyup
}

// Diagnose registers and releases Combo once.
func Diagnose() (string, error) {
	hk := New()
	if err := hk.Register(); err != nil {
		return "", err
	}
	hk.Unregister()
	return "hotkey support available (" + Combo + ")", nil
}
