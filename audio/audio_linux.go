//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

const pulseHostAPI = "PulseAudio"

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("traductor"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		name := s.Name()
		// Monitor sources expose what the sink plays, i.e. system audio.
		if strings.HasSuffix(s.ID(), ".monitor") && !strings.HasPrefix(strings.ToLower(name), "monitor of") {
			name = "Monitor of " + name
		}
		devices = append(devices, DeviceInfo{
			ID:                s.ID(),
			Name:              name,
			HostAPI:           pulseHostAPI,
			MaxInputChannels:  channelCount(s.Channels()),
			DefaultSampleRate: uint32(s.SampleRate()),
		})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	if config.Channels != 1 && config.Channels != 2 {
		return nil, fmt.Errorf("%w: pulse capture supports 1 or 2 channels, got %d", ErrDeviceUnavailable, config.Channels)
	}
	return &pulseCapture{
		client: p.client,
		device: device,
		config: config,
	}, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

type pulseCapture struct {
	client   *pulse.Client
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	stream *pulse.RecordStream
	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := int(c.config.Channels)
	writer := pulse.Int16Writer(func(buf []int16) (int, error) {
		if len(buf) == 0 {
			return 0, nil
		}
		cb := c.callback.Load()
		if cb == nil {
			return len(buf), nil
		}
		data := make([]byte, len(buf)*2)
		for i, s := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
		}
		var status Status
		if len(buf)%channels != 0 {
			status = "partial frame"
		}
		(*cb)(data, uint32(len(buf)/channels), status)
		return len(buf), nil
	})

	latency := 0.1
	if c.config.BlockSize > 0 && c.config.SampleRate > 0 {
		latency = float64(c.config.BlockSize) / float64(c.config.SampleRate)
	}
	opts := []pulse.RecordOption{
		pulse.RecordSampleRate(int(c.config.SampleRate)),
		pulse.RecordLatency(latency),
	}
	if c.config.Channels == 2 {
		opts = append(opts, pulse.RecordStereo)
	} else {
		opts = append(opts, pulse.RecordMono)
	}
	if c.device != nil {
		source, err := c.client.SourceByID(c.device.ID)
		if err != nil || source == nil {
			return fmt.Errorf("%w: pulse source %q not found", ErrDeviceUnavailable, c.device.ID)
		}
		opts = append(opts, pulse.RecordSource(source))
	}

	stream, err := c.client.NewRecord(writer, opts...)
	if err != nil {
		return fmt.Errorf("%w: pulse record: %v", ErrDeviceUnavailable, err)
	}

	c.stream = stream
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	stream.Start()
	go func() {
		defer close(c.done)
		<-c.stop
		stream.Stop()
		stream.Close()
	}()

	return nil
}

func (c *pulseCapture) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return false
	}
	return c.stream.Running() && c.stream.Error() == nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		select {
		case <-c.stop:
		default:
			close(c.stop)
		}
		<-c.done
	}
	c.stream = nil
}

func (c *pulseCapture) Close() {
	c.Stop()
}

func (c *pulseCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *pulseCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *pulseCapture) DeviceName() string {
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}

// channelCount is the number of positions in a PulseAudio channel map.
func channelCount(m proto.ChannelMap) uint32 {
	return uint32(len(m))
}
