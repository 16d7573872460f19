package audio

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"
)

// Frame is one block of interleaved 16-bit samples as delivered by the host.
type Frame struct {
	Samples  []int16
	Channels int
	Virtual  bool
	At       time.Time
}

func (f Frame) Len() int {
	if f.Channels <= 0 {
		return len(f.Samples)
	}
	return len(f.Samples) / f.Channels
}

// DecodePCM converts little-endian 16-bit bytes into samples.
func DecodePCM(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

// EncodePCM is the inverse of DecodePCM.
func EncodePCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// FrameQueue is a bounded single-producer single-consumer queue. When
// full, Push evicts the oldest frame so the producer never blocks.
type FrameQueue struct {
	ch      chan Frame
	dropped atomic.Uint64
}

func NewFrameQueue(size int) *FrameQueue {
	if size < 1 {
		size = 1
	}
	return &FrameQueue{ch: make(chan Frame, size)}
}

// Push enqueues f and reports whether an older frame was evicted.
func (q *FrameQueue) Push(f Frame) bool {
	select {
	case q.ch <- f:
		return false
	default:
	}
	evicted := false
	select {
	case <-q.ch:
		evicted = true
		q.dropped.Add(1)
	default:
	}
	select {
	case q.ch <- f:
	default:
		q.dropped.Add(1)
	}
	return evicted
}

// Pop waits up to timeout for a frame. It returns ErrQueueEmpty when the
// timeout elapses and ctx.Err() when ctx is done.
func (q *FrameQueue) Pop(ctx context.Context, timeout time.Duration) (Frame, error) {
	select {
	case f := <-q.ch:
		return f, nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-q.ch:
		return f, nil
	case <-timer.C:
		return Frame{}, ErrQueueEmpty
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (q *FrameQueue) Len() int        { return len(q.ch) }
func (q *FrameQueue) Cap() int        { return cap(q.ch) }
func (q *FrameQueue) Dropped() uint64 { return q.dropped.Load() }

// Drain discards every queued frame and returns how many there were.
func (q *FrameQueue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
