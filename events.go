package main

import "traductor/audio"

// EventSink abstracts the display layer so both the Bubble Tea TUI
// and the Fyne overlay receive the same translator events. Methods are
// called from worker goroutines.
type EventSink interface {
	CaptureState(active bool)
	Partial(text string)
	AudioTranslation(text string)
	AudioLevel(rms float64)
	OCRBusy(busy bool)
	OCRResult(text string)
	ManualResult(text string)
	DeviceLine(text string)
	Devices(devices []audio.Device, selectedID string)
	Error(msg string)
}

type nopSink struct{}

func (nopSink) CaptureState(bool)              {}
func (nopSink) Partial(string)                 {}
func (nopSink) AudioTranslation(string)        {}
func (nopSink) AudioLevel(float64)             {}
func (nopSink) OCRBusy(bool)                   {}
func (nopSink) OCRResult(string)               {}
func (nopSink) ManualResult(string)            {}
func (nopSink) DeviceLine(string)              {}
func (nopSink) Devices([]audio.Device, string) {}
func (nopSink) Error(string)                   {}
