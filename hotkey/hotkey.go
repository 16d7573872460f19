package hotkey

// Combo is the global shortcut that controls audio capture.
const Combo = "Ctrl+Shift+Space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}
