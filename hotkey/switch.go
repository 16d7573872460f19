package hotkey

import (
	"context"
	"time"
)

const DefaultLongPress = 400 * time.Millisecond

// Switch turns presses of a Hotkey into capture start/stop requests. A tap
// toggles capture on; holding longer than LongPress captures only while the
// keys are held. Any press while capturing stops on release.
type Switch struct {
	LongPress time.Duration
	Active    func() bool
	Start     func()
	Stop      func()
}

// Run handles presses until ctx is cancelled.
func (s *Switch) Run(ctx context.Context, hk Hotkey) {
	longPress := s.LongPress
	if longPress <= 0 {
		longPress = DefaultLongPress
	}
	for {
		if !wait(ctx, hk.Keydown()) {
			return
		}
		if s.Active() {
			if !wait(ctx, hk.Keyup()) {
				return
			}
			s.Stop()
			continue
		}

		s.Start()
		timer := time.NewTimer(longPress)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-hk.Keyup():
			// Short tap: stay on until the next press.
			timer.Stop()
		case <-timer.C:
			if !wait(ctx, hk.Keyup()) {
				return
			}
			s.Stop()
		}
	}
}

func wait(ctx context.Context, ch <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case <-ch:
		return true
	}
}
