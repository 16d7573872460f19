package audio

import (
	"errors"
	"strings"
)

const WAVHeaderSize = 44

var (
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrStreamFault       = errors.New("audio stream fault")
	ErrQueueEmpty        = errors.New("frame queue empty")
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

func IsBluetooth(name string) bool {
	return containsAny(strings.ToLower(name), btKeywords)
}

// Status is set by the backend when a callback delivers degraded data
// (overflow, short buffer). Empty means the block is clean.
type Status string

type DataCallback func(data []byte, frameCount uint32, status Status)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	BlockSize  uint32 // frames per callback, 0 lets the backend pick
}

type DeviceInfo struct {
	ID                string // opaque platform-specific identifier
	Name              string
	HostAPI           string
	MaxInputChannels  uint32
	DefaultSampleRate uint32
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	// Active reports whether the host still delivers blocks.
	Active() bool
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
