package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeWAV(t *testing.T, rate uint32, channels uint16, bits uint16, pcm []byte) string {
	t.Helper()
	hdr := make([]byte, WAVHeaderSize)
	copy(hdr[0:], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(36+len(pcm)))
	copy(hdr[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], 1)
	binary.LittleEndian.PutUint16(hdr[22:], channels)
	binary.LittleEndian.PutUint32(hdr[24:], rate)
	binary.LittleEndian.PutUint32(hdr[28:], rate*uint32(channels)*uint32(bits/8))
	binary.LittleEndian.PutUint16(hdr[32:], channels*bits/8)
	binary.LittleEndian.PutUint16(hdr[34:], bits)
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], uint32(len(pcm)))

	path := filepath.Join(t.TempDir(), "in.wav")
	if err := os.WriteFile(path, append(hdr, pcm...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWAV(t *testing.T) {
	path := writeWAV(t, 16000, 1, 16, make([]byte, 32000))
	w, err := LoadWAV(path)
	if err != nil {
		t.Fatal(err)
	}
	if w.SampleRate != 16000 || w.Channels != 1 || len(w.PCM) != 32000 {
		t.Errorf("got rate %d, channels %d, %d bytes", w.SampleRate, w.Channels, len(w.PCM))
	}
	if d := w.Duration(); d != time.Second {
		t.Errorf("duration = %v", d)
	}
}

func TestLoadWAVRejects(t *testing.T) {
	if _, err := LoadWAV(writeWAV(t, 16000, 1, 8, make([]byte, 10))); err == nil {
		t.Error("8-bit file accepted")
	}
	junk := filepath.Join(t.TempDir(), "junk.wav")
	os.WriteFile(junk, []byte("not audio at all"), 0o644)
	if _, err := LoadWAV(junk); err == nil {
		t.Error("junk accepted")
	}
}
