package encoder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileRecorder collects the recognizer's input into fixed-size FLAC blocks
// and writes the file on Close.
type FileRecorder struct {
	path    string
	enc     Encoder
	pending []int16
	closed  bool
}

func NewFileRecorder(path string, sampleRate uint32) (*FileRecorder, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating dump dir: %w", err)
		}
	}
	enc, err := NewFlac(sampleRate)
	if err != nil {
		return nil, err
	}
	return newRecorder(path, enc), nil
}

func newRecorder(path string, enc Encoder) *FileRecorder {
	return &FileRecorder{path: path, enc: enc, pending: make([]int16, 0, BlockSize)}
}

func (r *FileRecorder) Path() string { return r.path }

func (r *FileRecorder) Write(samples []int16) error {
	if r.closed {
		return os.ErrClosed
	}
	for len(samples) > 0 {
		n := min(BlockSize-len(r.pending), len(samples))
		r.pending = append(r.pending, samples[:n]...)
		samples = samples[n:]
		if len(r.pending) == BlockSize {
			if err := r.enc.EncodeBlock(r.pending); err != nil {
				return err
			}
			r.pending = r.pending[:0]
		}
	}
	return nil
}

func (r *FileRecorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if len(r.pending) > 0 {
		if err := r.enc.EncodeBlock(r.pending); err != nil {
			return err
		}
	}
	if err := r.enc.Close(); err != nil {
		return fmt.Errorf("finishing flac stream: %w", err)
	}
	return os.WriteFile(r.path, r.enc.Bytes(), 0o644)
}

// SessionPath derives a per-session file name from base, so that
// successive captures do not overwrite each other: dump.flac becomes
// dump-1a2b3c4d.flac.
func SessionPath(base, sessionID string) string {
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".flac"
	}
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "-" + short + ext
}
