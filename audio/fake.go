package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const fakeFrameSize = 1024

// FakeDevice describes an endpoint served by FakeContext. A non-nil
// OpenErr makes Start fail for that device.
type FakeDevice struct {
	Info    DeviceInfo
	OpenErr error
}

// FakeContext is an in-memory host used by tests and by -replay. Every
// capture feeds the same PCM buffer in fixed-size chunks.
type FakeContext struct {
	mu       sync.Mutex
	devices  []FakeDevice
	listErr  error
	pcm      []byte
	chunk    int
	interval time.Duration
	open     int
	captures []*FakeCapture
}

func NewFakeContext(devices ...FakeDevice) *FakeContext {
	return &FakeContext{devices: devices, chunk: fakeFrameSize, interval: time.Millisecond}
}

// WAV is decoded canonical 16-bit PCM.
type WAV struct {
	PCM        []byte
	SampleRate uint32
	Channels   uint32
}

// LoadWAV reads a 16-bit PCM WAV file with the canonical 44-byte header.
func LoadWAV(path string) (WAV, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WAV{}, err
	}
	if len(data) < WAVHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return WAV{}, fmt.Errorf("%s: not a WAV file", path)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		return WAV{}, fmt.Errorf("%s: %d-bit samples, want 16", path, bits)
	}
	return WAV{
		PCM:        data[WAVHeaderSize:],
		SampleRate: binary.LittleEndian.Uint32(data[24:28]),
		Channels:   uint32(binary.LittleEndian.Uint16(data[22:24])),
	}, nil
}

// Duration is the playback length of the samples.
func (w WAV) Duration() time.Duration {
	frameBytes := 2 * max(1, int(w.Channels))
	if w.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(w.PCM)/frameBytes) * time.Second / time.Duration(w.SampleRate)
}

// SetPCM sets the audio fed by captures, framesPerChunk frames at a time
// with interval between chunks.
func (f *FakeContext) SetPCM(pcm []byte, framesPerChunk int, interval time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pcm = pcm
	if framesPerChunk > 0 {
		f.chunk = framesPerChunk
	}
	f.interval = interval
}

// RemoveDevice unplugs the device with the given id.
func (f *FakeContext) RemoveDevice(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.devices {
		if d.Info.ID == id {
			f.devices = append(f.devices[:i], f.devices[i+1:]...)
			return
		}
	}
}

func (f *FakeContext) FailListing(err error) {
	f.mu.Lock()
	f.listErr = err
	f.mu.Unlock()
}

// OpenCount is the number of captures started and not yet closed.
func (f *FakeContext) OpenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]DeviceInfo, len(f.devices))
	for i, d := range f.devices {
		out[i] = d.Info
	}
	return out, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var dev *FakeDevice
	for i := range f.devices {
		if device != nil && f.devices[i].Info.ID == device.ID {
			dev = &f.devices[i]
			break
		}
	}
	if dev == nil {
		return nil, fmt.Errorf("fake: unknown device")
	}
	c := &FakeCapture{
		ctx:      f,
		device:   *dev,
		config:   config,
		pcm:      f.pcm,
		chunk:    f.chunk,
		interval: f.interval,
	}
	f.captures = append(f.captures, c)
	return c, nil
}

type FakeCapture struct {
	ctx      *FakeContext
	device   FakeDevice
	config   CaptureConfig
	pcm      []byte
	chunk    int
	interval time.Duration

	callback atomic.Pointer[DataCallback]
	active   atomic.Bool
	started  bool
	closed   bool
	mu       sync.Mutex
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (c *FakeCapture) Config() CaptureConfig { return c.config }

func (c *FakeCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *FakeCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *FakeCapture) DeviceName() string { return c.device.Info.Name }

func (c *FakeCapture) Active() bool { return c.active.Load() }

// Fail simulates the host dropping the device mid-stream.
func (c *FakeCapture) Fail() {
	c.active.Store(false)
}

// Emit delivers one block to the callback synchronously.
func (c *FakeCapture) Emit(data []byte, status Status) {
	if cb := c.callback.Load(); cb != nil {
		(*cb)(data, uint32(len(data)/2/int(max(1, c.config.Channels))), status)
	}
}

func (c *FakeCapture) Start() error {
	if c.device.OpenErr != nil {
		return c.device.OpenErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.started = true
		c.ctx.mu.Lock()
		c.ctx.open++
		c.ctx.mu.Unlock()
	}
	c.stopCh = make(chan struct{})
	c.feedDone = make(chan struct{})
	c.active.Store(true)
	go c.feed(c.stopCh, c.feedDone)
	return nil
}

func (c *FakeCapture) feed(stop, done chan struct{}) {
	defer close(done)
	chunkBytes := c.chunk * int(max(1, c.config.Channels)) * 2
	for pos := 0; pos < len(c.pcm); {
		select {
		case <-stop:
			return
		case <-time.After(c.interval):
		}
		if !c.active.Load() {
			return
		}
		end := min(pos+chunkBytes, len(c.pcm))
		block := make([]byte, end-pos)
		copy(block, c.pcm[pos:end])
		c.Emit(block, "")
		pos = end
	}
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active.Store(false)
	if c.stopCh == nil {
		return
	}
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	<-c.feedDone
}

func (c *FakeCapture) Close() {
	c.Stop()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started && !c.closed {
		c.closed = true
		c.ctx.mu.Lock()
		c.ctx.open--
		c.ctx.mu.Unlock()
	}
}
