package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultLivenessInterval = 100 * time.Millisecond

// Stream owns one hardware capture session. The host callback converts
// blocks into Frames and pushes them onto a FrameQueue; a supervisor
// goroutine checks device liveness and records a fault if it dies.
type Stream struct {
	ctx      Context
	interval time.Duration
	onDrop   func(reason string)

	mu      sync.Mutex
	dev     CaptureDevice
	stop    chan struct{}
	done    chan struct{}
	running atomic.Bool
	frames  atomic.Uint64

	errMu sync.Mutex
	err   error
}

type StreamOption func(*Stream)

func WithLivenessInterval(d time.Duration) StreamOption {
	return func(s *Stream) { s.interval = d }
}

// WithDropHook is called when a block is discarded because the host flagged it.
func WithDropHook(fn func(reason string)) StreamOption {
	return func(s *Stream) { s.onDrop = fn }
}

func NewStream(ctx Context, opts ...StreamOption) *Stream {
	s := &Stream{ctx: ctx, interval: DefaultLivenessInterval}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start opens the device described by cfg and begins pushing frames to q.
// Calling Start on a running stream is a no-op.
func (s *Stream) Start(cfg DeviceConfig, q *FrameQueue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return nil
	}
	if s.dev != nil {
		s.teardownLocked()
	}

	info := cfg.Device.Info
	dev, err := s.ctx.NewCapture(&info, cfg.Capture())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	channels := int(max(1, cfg.Channels))
	virtual := cfg.Virtual
	dev.SetCallback(func(data []byte, _ uint32, status Status) {
		if status != "" {
			if s.onDrop != nil {
				s.onDrop(string(status))
			}
			return
		}
		if !s.running.Load() {
			return
		}
		s.frames.Add(1)
		q.Push(Frame{Samples: DecodePCM(data), Channels: channels, Virtual: virtual, At: time.Now()})
	})

	s.running.Store(true)
	if err := dev.Start(); err != nil {
		s.running.Store(false)
		dev.ClearCallback()
		dev.Close()
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	s.dev = dev
	s.setErr(nil)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.supervise(dev, s.stop, s.done)
	return nil
}

func (s *Stream) supervise(dev CaptureDevice, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !dev.Active() {
				s.running.Store(false)
				s.setErr(fmt.Errorf("%w: %s stopped delivering audio", ErrStreamFault, dev.DeviceName()))
				return
			}
		}
	}
}

// Stop halts capture and releases the device. Safe to call repeatedly,
// including after a fault.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running.Store(false)
	s.teardownLocked()
}

func (s *Stream) teardownLocked() {
	if s.dev == nil {
		return
	}
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	s.dev.ClearCallback()
	s.dev.Stop()
	s.dev.Close()
	s.dev = nil
}

func (s *Stream) Running() bool { return s.running.Load() }

// Done is closed when the supervisor exits, either from Stop or a fault.
// It is nil before the first successful Start.
func (s *Stream) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the fault that ended the last session, if any.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

func (s *Stream) Frames() uint64 { return s.frames.Load() }
