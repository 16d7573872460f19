//go:build !gui

package main

import (
	"fmt"
	"os"

	"traductor/audio"
	"traductor/ocr"
)

// Stubs for non-GUI builds (these are never used since guiMode is false)
var guiMode bool
var guiAudioCtx audio.Context

func initGUI() {
	fmt.Fprintln(os.Stderr, "traductor: built without GUI support (rebuild with -tags gui)")
	os.Exit(1)
}

func startOverlay(*app, *windowState, langPairs, *ocr.Region, string) (EventSink, <-chan struct{}) {
	return nopSink{}, nil
}
