//go:build gui

// Package gui is the floating overlay window.
package gui

import (
	"strings"
	"sync"

	"traductor/audio"
	"traductor/ocr"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	maxLines    = 50
	windowWidth = 460
)

// Controller is what the overlay's buttons drive.
type Controller interface {
	ToggleCapture()
	SelectDevice(id string) error
	RefreshDevices() []audio.Device
	TranslateManual(text string) string
	TranslateRegion(r ocr.Region) error
	CopyLast() error
}

// Settings are the initial appearance and the hooks that persist changes.
type Settings struct {
	Version    string
	Color      string // "#rrggbb"
	Opacity    float64
	Expanded   bool
	DeviceLine string
	Region     string

	AudioPair, OCRPair, ManualPair string

	NextColor      func() string // returns the hex of the next palette colour
	SetOpacity     func(v float64) float64
	ToggleExpanded func() bool
}

type App struct {
	fyneApp fyne.App
	window  fyne.Window
	onReady func()
	posX    int
	posY    int

	ctl Controller
	set Settings

	status    *widget.Label
	device    *widget.Label
	devices   *widget.Select
	level     *widget.ProgressBar
	history   *widget.Label
	scroll    *container.Scroll
	partial   *widget.Label
	errLabel  *widget.Label
	liveBtn   *widget.Button
	ocrBtn    *widget.Button
	regionIn  *widget.Entry
	ocrOut    *widget.Label
	manualIn  *widget.Entry
	manualOut *widget.Label
	panel     *fyne.Container
	deviceIDs map[string]string
	syncing   bool
	lines     []string

	done     chan struct{}
	doneOnce sync.Once
}

func NewApp(onReady func()) *App {
	return &App{onReady: onReady, done: make(chan struct{})}
}

func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.traductor.overlay")
	a.fyneApp.Settings().SetTheme(&overlayTheme{text: defaultText})

	// Get primary monitor work area for positioning
	var screenW, screenH int
	monitor := glfw.GetPrimaryMonitor()
	if monitor != nil {
		_, _, screenW, screenH = monitor.GetWorkarea()
	} else {
		screenW, screenH = 1920, 1080 // fallback
	}
	a.posX = screenW - windowWidth - 20
	a.posY = screenH / 8

	a.window = a.fyneApp.NewWindow("traductor")
	a.window.SetMaster()
	a.window.SetOnClosed(a.markDone)

	go a.onReady()

	a.fyneApp.Run()
	a.markDone()
	return nil
}

func (a *App) markDone() {
	a.doneOnce.Do(func() { close(a.done) })
}

// Done is closed when the user closes the overlay.
func (a *App) Done() <-chan struct{} { return a.done }

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

// Bind builds the overlay around ctl and shows it. It must be called once,
// off the UI goroutine.
func (a *App) Bind(ctl Controller, s Settings) {
	a.ctl = ctl
	a.set = s
	fyne.DoAndWait(func() {
		a.build()
		a.window.Show()
		a.applyWindowAttrs()
	})
	go ctl.RefreshDevices()
}

func (a *App) build() {
	a.status = widget.NewLabel("○ standby")
	a.device = widget.NewLabel(a.set.DeviceLine)
	a.device.Truncation = fyne.TextTruncateEllipsis
	a.errLabel = widget.NewLabel("")
	a.errLabel.Wrapping = fyne.TextWrapWord
	a.errLabel.Importance = widget.DangerImportance
	a.deviceIDs = map[string]string{}
	a.devices = widget.NewSelect(nil, func(label string) {
		if a.syncing {
			return
		}
		if id, ok := a.deviceIDs[label]; ok {
			go a.ctl.SelectDevice(id)
		}
	})
	a.devices.PlaceHolder = "Audio device"

	a.liveBtn = widget.NewButton("Live "+a.set.AudioPair, func() { go a.ctl.ToggleCapture() })
	a.level = widget.NewProgressBar()
	a.level.TextFormatter = func() string { return "" }

	a.history = widget.NewLabel("")
	a.history.Wrapping = fyne.TextWrapWord
	a.scroll = container.NewVScroll(a.history)
	a.scroll.SetMinSize(fyne.NewSize(windowWidth, 140))
	a.partial = widget.NewLabel("")
	a.partial.Wrapping = fyne.TextWrapWord
	a.partial.TextStyle = fyne.TextStyle{Italic: true}

	copyBtn := widget.NewButton("Copy", func() {
		go func() {
			if err := a.ctl.CopyLast(); err != nil {
				a.Error(err.Error())
			}
		}()
	})
	colorBtn := widget.NewButton("Colour", func() {
		if c, err := parseHex(a.set.NextColor()); err == nil {
			a.fyneApp.Settings().SetTheme(&overlayTheme{text: c})
		}
	})
	opacity := widget.NewSlider(0.1, 1.0)
	opacity.Step = 0.05
	opacity.Value = a.set.Opacity
	opacity.OnChanged = func(v float64) {
		a.set.Opacity = a.set.SetOpacity(v)
		a.applyWindowAttrs()
	}
	expandBtn := widget.NewButton("More", nil)
	expandBtn.OnTapped = func() {
		if a.set.ToggleExpanded() {
			a.panel.Show()
		} else {
			a.panel.Hide()
		}
		a.window.Resize(a.window.Content().MinSize())
	}

	// Expanded panel: screen region and manual translation.
	a.regionIn = widget.NewEntry()
	a.regionIn.SetPlaceHolder("x,y,w,h")
	a.regionIn.SetText(a.set.Region)
	a.ocrOut = widget.NewLabel("")
	a.ocrOut.Wrapping = fyne.TextWrapWord
	a.ocrBtn = widget.NewButton("Translate screen "+a.set.OCRPair, a.translateRegion)

	a.manualIn = widget.NewMultiLineEntry()
	a.manualIn.SetPlaceHolder("Type text to translate")
	a.manualIn.SetMinRowsVisible(2)
	a.manualOut = widget.NewLabel("")
	a.manualOut.Wrapping = fyne.TextWrapWord
	manualBtn := widget.NewButton("Translate "+a.set.ManualPair, func() {
		a.manualOut.SetText(a.ctl.TranslateManual(a.manualIn.Text))
	})

	a.panel = container.NewVBox(
		widget.NewSeparator(),
		container.NewBorder(nil, nil, nil, a.ocrBtn, a.regionIn),
		a.ocrOut,
		widget.NewSeparator(),
		a.manualIn,
		manualBtn,
		a.manualOut,
	)
	if !a.set.Expanded {
		a.panel.Hide()
	}

	if c, err := parseHex(a.set.Color); err == nil {
		a.fyneApp.Settings().SetTheme(&overlayTheme{text: c})
	}

	header := container.NewBorder(nil, nil, a.status, a.liveBtn, a.device)
	controls := container.NewHBox(copyBtn, colorBtn, expandBtn)
	a.window.SetContent(container.NewVBox(
		header,
		a.devices,
		a.level,
		a.scroll,
		a.partial,
		a.panel,
		a.errLabel,
		container.NewBorder(nil, nil, controls, widget.NewLabel("traductor "+a.set.Version), opacity),
	))
	a.window.Resize(fyne.NewSize(windowWidth, a.window.Content().MinSize().Height))
}

func (a *App) translateRegion() {
	r, err := ocr.ParseRegion(a.regionIn.Text)
	if err != nil {
		a.errLabel.SetText(err.Error())
		return
	}
	a.errLabel.SetText("")
	go func() {
		if err := a.ctl.TranslateRegion(r); err != nil {
			a.Error(err.Error())
		}
	}()
}

func (a *App) applyWindowAttrs() {
	if glfwWin := glfw.GetCurrentContext(); glfwWin != nil {
		glfwWin.SetPos(a.posX, a.posY)
		glfwWin.SetAttrib(glfw.Floating, glfw.True)
		glfwWin.SetOpacity(float32(a.set.Opacity))
	}
}

// EventSink implementation. Calls arrive on worker goroutines.

func (a *App) CaptureState(active bool) {
	fyne.Do(func() {
		if active {
			a.status.SetText("● live")
			a.errLabel.SetText("")
		} else {
			a.status.SetText("○ standby")
			a.partial.SetText("")
			a.level.SetValue(0)
		}
	})
}

func (a *App) Partial(text string) {
	fyne.Do(func() { a.partial.SetText(text) })
}

func (a *App) AudioTranslation(text string) {
	fyne.Do(func() {
		a.lines = append(a.lines, text)
		if len(a.lines) > maxLines {
			a.lines = a.lines[len(a.lines)-maxLines:]
		}
		a.history.SetText(strings.Join(a.lines, "\n"))
		a.scroll.ScrollToBottom()
	})
}

func (a *App) AudioLevel(rms float64) {
	fyne.Do(func() { a.level.SetValue(min(1, rms*4)) })
}

func (a *App) OCRBusy(busy bool) {
	fyne.Do(func() {
		if busy {
			a.ocrBtn.Disable()
			a.regionIn.Disable()
			a.ocrOut.SetText("Translating...")
		} else {
			a.ocrBtn.Enable()
			a.regionIn.Enable()
		}
	})
}

func (a *App) OCRResult(text string) {
	fyne.Do(func() { a.ocrOut.SetText(text) })
}

func (a *App) ManualResult(text string) {
	fyne.Do(func() { a.manualOut.SetText(text) })
}

func (a *App) DeviceLine(text string) {
	fyne.Do(func() { a.device.SetText(text) })
}

func (a *App) Devices(devices []audio.Device, selectedID string) {
	fyne.Do(func() {
		a.deviceIDs = make(map[string]string, len(devices))
		labels := make([]string, 0, len(devices))
		selected := ""
		for _, d := range devices {
			label := d.Label
			if audio.IsBluetooth(d.Info.Name) {
				label += " (BT!)"
			}
			a.deviceIDs[label] = d.ID()
			labels = append(labels, label)
			if d.ID() == selectedID {
				selected = label
			}
		}
		a.syncing = true
		a.devices.SetOptions(labels)
		if selected != "" {
			a.devices.SetSelected(selected)
		}
		a.syncing = false
	})
}

func (a *App) Error(msg string) {
	fyne.Do(func() { a.errLabel.SetText(msg) })
}
