package main

import "testing"

func TestWindowStateOpacityClamped(t *testing.T) {
	w := newWindowState("white", 0.02, false)
	if w.Opacity != minOpacity {
		t.Errorf("opacity = %v", w.Opacity)
	}
	w.SetOpacity(3)
	if w.Opacity != maxOpacity {
		t.Errorf("opacity = %v", w.Opacity)
	}
	w.SetOpacity(0.5)
	if w.Opacity != 0.5 {
		t.Errorf("opacity = %v", w.Opacity)
	}
}

func TestWindowStateColorCycle(t *testing.T) {
	w := newWindowState("Teal", 1, false)
	if w.TextColor != "white" {
		t.Fatalf("unknown colour kept: %q", w.TextColor)
	}
	seen := map[string]bool{}
	for range textColors {
		seen[w.NextColor()] = true
	}
	if len(seen) != len(textColors) || w.TextColor != "white" {
		t.Errorf("cycle visited %v, ended on %q", seen, w.TextColor)
	}
	if w.Hex() != "#ffffff" {
		t.Errorf("hex = %q", w.Hex())
	}
}

func TestWindowStateToggleExpanded(t *testing.T) {
	w := newWindowState("cyan", 1, false)
	if !w.ToggleExpanded() || w.ToggleExpanded() {
		t.Error("toggle did not alternate")
	}
}
