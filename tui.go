package main

import (
	"fmt"
	"strings"
	"time"

	"traductor/audio"
	"traductor/hotkey"
	"traductor/ocr"
	"traductor/translate"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type captureStateMsg struct{ Active bool }
type partialMsg struct{ Text string }
type audioTranslationMsg struct{ Text string }
type audioLevelMsg struct{ Level float64 }
type ocrBusyMsg struct{ Busy bool }
type ocrResultMsg struct{ Text string }
type manualResultMsg struct{ Text string }
type deviceLineMsg struct{ Text string }
type devicesMsg struct {
	Devices  []audio.Device
	Selected string
}
type errorMsg struct{ Text string }
type statusMsg struct{ Text string }
type tickMsg time.Time

const maxHistory = 50

// controller is the part of app the window drives. Calls that emit events
// run as commands, since the sink sends back into the program.
type controller interface {
	ToggleCapture()
	SelectDevice(id string) error
	RefreshDevices() []audio.Device
	TranslateManual(text string) string
	TranslateRegion(r ocr.Region) error
	CopyLast() error
}

type tuiModel struct {
	ctl    controller
	win    windowState
	pairs  langPairs
	region *ocr.Region

	width, height int
	frame         int

	capturing  bool
	capturedAt time.Time
	level      float64
	peak       float64
	deviceLine string
	partial    string
	history    []string

	ocrBusy bool
	ocrText string

	input      []rune
	manualText string

	status string
	errText string

	picking    bool
	devices    []audio.Device
	cursor     int
	selectedID string
}

// tuiSink forwards translator events into the Bubble Tea program.
type tuiSink struct {
	p *tea.Program
}

func (s tuiSink) CaptureState(active bool)     { s.p.Send(captureStateMsg{active}) }
func (s tuiSink) Partial(text string)          { s.p.Send(partialMsg{text}) }
func (s tuiSink) AudioTranslation(text string) { s.p.Send(audioTranslationMsg{text}) }
func (s tuiSink) AudioLevel(rms float64)       { s.p.Send(audioLevelMsg{rms}) }
func (s tuiSink) OCRBusy(busy bool)            { s.p.Send(ocrBusyMsg{busy}) }
func (s tuiSink) OCRResult(text string)        { s.p.Send(ocrResultMsg{text}) }
func (s tuiSink) ManualResult(text string)     { s.p.Send(manualResultMsg{text}) }
func (s tuiSink) DeviceLine(text string)       { s.p.Send(deviceLineMsg{text}) }
func (s tuiSink) Error(msg string)             { s.p.Send(errorMsg{msg}) }
func (s tuiSink) Devices(devices []audio.Device, selected string) {
	s.p.Send(devicesMsg{devices, selected})
}

func newTUIModel(ctl controller, win windowState, pairs langPairs, region *ocr.Region) tuiModel {
	return tuiModel{ctl: ctl, win: win, pairs: pairs, region: region}
}

func NewTUIProgram(m tuiModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if m.picking {
			return m.updatePicker(msg)
		}
		return m.updateKeys(msg)

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case captureStateMsg:
		m.capturing = msg.Active
		m.level = 0
		if msg.Active {
			m.capturedAt = time.Now()
			m.peak = 0
			m.errText = ""
		} else {
			m.partial = ""
		}

	case audioLevelMsg:
		if m.capturing {
			m.level = m.level*0.6 + msg.Level*0.4
			m.peak = max(m.peak, msg.Level)
		}

	case partialMsg:
		m.partial = msg.Text

	case audioTranslationMsg:
		m.history = append(m.history, msg.Text)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}

	case ocrBusyMsg:
		m.ocrBusy = msg.Busy
		if msg.Busy {
			m.ocrText = translate.PendingMessage
		}

	case ocrResultMsg:
		m.ocrText = msg.Text

	case manualResultMsg:
		m.manualText = msg.Text

	case deviceLineMsg:
		m.deviceLine = msg.Text

	case devicesMsg:
		m.devices = msg.Devices
		m.selectedID = msg.Selected
		m.cursor = 0
		for i, d := range m.devices {
			if d.ID() == msg.Selected {
				m.cursor = i
			}
		}

	case errorMsg:
		m.errText = msg.Text

	case statusMsg:
		m.status = msg.Text
	}
	return m, nil
}

func (m tuiModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "ctrl+a":
		ctl := m.ctl
		return m, func() tea.Msg {
			ctl.ToggleCapture()
			return nil
		}
	case "ctrl+g":
		m.picking = true
		ctl := m.ctl
		return m, func() tea.Msg {
			ctl.RefreshDevices()
			return nil
		}
	case "ctrl+e":
		m.win.ToggleExpanded()
	case "ctrl+t":
		m.status = "text colour: " + m.win.NextColor()
	case "ctrl+y":
		ctl := m.ctl
		return m, func() tea.Msg {
			if err := ctl.CopyLast(); err != nil {
				return errorMsg{err.Error()}
			}
			return statusMsg{"copied to clipboard"}
		}
	case "ctrl+o":
		if m.region == nil {
			m.errText = "no screen region configured (ocr.region)"
			return m, nil
		}
		if m.ocrBusy {
			return m, nil
		}
		ctl, r := m.ctl, *m.region
		return m, func() tea.Msg {
			if err := ctl.TranslateRegion(r); err != nil {
				return errorMsg{err.Error()}
			}
			return nil
		}
	case "enter":
		m.manualText = m.ctl.TranslateManual(string(m.input))
	case "backspace":
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case "ctrl+u":
		m.input = nil
	case " ":
		m.input = append(m.input, ' ')
	default:
		if msg.Type == tea.KeyRunes {
			m.input = append(m.input, msg.Runes...)
		}
	}
	return m, nil
}

func (m tuiModel) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc", "ctrl+g":
		m.picking = false
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}
	case "enter":
		m.picking = false
		if m.cursor < len(m.devices) {
			id := m.devices[m.cursor].ID()
			m.selectedID = id
			ctl := m.ctl
			return m, func() tea.Msg {
				ctl.SelectDevice(id)
				return nil
			}
		}
	}
	return m, nil
}

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
)

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if m.picking {
		return m.viewPicker()
	}

	width := max(20, m.width-2)
	textStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.win.Hex()))
	var b strings.Builder

	if m.capturing {
		b.WriteString(recStyle.Render(fmt.Sprintf("● LIVE %s", time.Since(m.capturedAt).Truncate(time.Second))))
		b.WriteString("  " + renderMeter(m.level, 20))
		if time.Since(m.capturedAt) > 2*time.Second && m.peak < 0.02 {
			b.WriteString(errorStyle.Render("  ⚠ no audio"))
		}
	} else {
		b.WriteString(dimStyle.Render("○ STANDBY"))
	}
	b.WriteString("  " + dimStyle.Render(m.pairs.Audio.String()) + "\n")
	if m.deviceLine != "" {
		b.WriteString(dimStyle.Render(m.deviceLine) + "\n")
	} else {
		b.WriteString(errorStyle.Render("no device selected (ctrl+g)") + "\n")
	}
	b.WriteString("\n")

	// Audio translations, newest last; collapsed view keeps what fits.
	rows := m.height - 8
	if m.win.Expanded {
		rows = max(3, m.height/2-4)
	}
	var lines []string
	for _, text := range m.history {
		lines = append(lines, wrapText(text, width)...)
	}
	if len(lines) > rows && rows > 0 {
		lines = lines[len(lines)-rows:]
	}
	if len(lines) == 0 {
		b.WriteString(dimStyle.Render("No translations yet") + "\n")
	}
	for _, line := range lines {
		b.WriteString(textStyle.Render(line) + "\n")
	}
	if m.partial != "" {
		for _, line := range wrapText("… "+m.partial, width) {
			b.WriteString(dimStyle.Render(line) + "\n")
		}
	}

	if m.win.Expanded {
		b.WriteString("\n" + titleStyle.Render("Screen "+m.pairs.OCR.String()) + "\n")
		ocrText := m.ocrText
		if ocrText == "" {
			ocrText = "ctrl+o translates the configured region"
		}
		for _, line := range wrapText(ocrText, width) {
			b.WriteString(textStyle.Render(line) + "\n")
		}

		b.WriteString("\n" + titleStyle.Render("Manual "+m.pairs.Manual.String()) + "\n")
		b.WriteString(cursorStyle.Render("> ") + string(m.input) + cursorStyle.Render("▏") + "\n")
		for _, line := range wrapText(m.manualText, width) {
			b.WriteString(textStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n")
	} else if m.status != "" {
		b.WriteString(okStyle.Render(m.status) + "\n")
	}
	b.WriteString(boldStyle.Render(hotkey.Combo) + helpStyle.Render(" or ctrl+a live · ctrl+g device · ctrl+e panels · ctrl+t colour · ctrl+y copy"))
	b.WriteString("\n" + helpStyle.Render("traductor "+version))

	return lipgloss.NewStyle().Width(m.width).Height(m.height).PaddingLeft(1).Render(b.String())
}

func (m tuiModel) viewPicker() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select audio device") + "\n\n")
	if len(m.devices) == 0 {
		b.WriteString(dimStyle.Render("Scanning devices...") + "\n")
	}
	for i, d := range m.devices {
		mark := "  "
		if d.ID() == m.selectedID {
			mark = "* "
		}
		line := mark + d.Label
		if audio.IsBluetooth(d.Info.Name) {
			line += " (BT!)"
		}
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(dimStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓ move · enter select · esc back"))
	return lipgloss.NewStyle().PaddingLeft(1).Render(b.String())
}

// renderMeter draws rms (0..1, amplified for speech levels) as a bar.
func renderMeter(rms float64, width int) string {
	filled := min(width, int(rms*4*float64(width)+0.5))
	return okStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", width-filled))
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		r := []rune(para)
		for len(r) > width {
			// Find last space within width
			splitAt := width
			for i := width; i > 0; i-- {
				if r[i] == ' ' {
					splitAt = i
					break
				}
			}
			lines = append(lines, string(r[:splitAt]))
			r = []rune(strings.TrimLeft(string(r[splitAt:]), " "))
		}
		lines = append(lines, string(r))
	}
	return lines
}
