//go:build gui

package main

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"traductor/audio"
	"traductor/gui"
	"traductor/ocr"
)

var guiMode bool
var guiApp *gui.App

// Audio context initialized on main thread for macOS Core Audio compatibility
var guiAudioCtx audio.Context

func initGUI() {
	guiMode = true

	var err error
	guiAudioCtx, err = audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}

	// Lock this goroutine to OS thread for Fyne/GLFW
	runtime.LockOSThread()

	var code atomic.Int32
	guiApp = gui.NewApp(func() {
		code.Store(int32(run()))
		guiApp.Quit()
	})
	if err := gui.Run(guiApp); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(int(code.Load()))
}

func startOverlay(a *app, win *windowState, pairs langPairs, region *ocr.Region, line string) (EventSink, <-chan struct{}) {
	s := gui.Settings{
		Version:    version,
		Color:      win.Hex(),
		Opacity:    win.Opacity,
		Expanded:   win.Expanded,
		DeviceLine: line,
		AudioPair:  pairs.Audio.String(),
		OCRPair:    pairs.OCR.String(),
		ManualPair: pairs.Manual.String(),
		NextColor: func() string {
			win.NextColor()
			return win.Hex()
		},
		SetOpacity: func(v float64) float64 {
			win.SetOpacity(v)
			return win.Opacity
		},
		ToggleExpanded: win.ToggleExpanded,
	}
	if region != nil {
		s.Region = region.String()
	}
	guiApp.Bind(a, s)
	return guiApp, guiApp.Done()
}
