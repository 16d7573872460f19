//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

const loopbackPrefix = "loopback:"

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func hostAPI() string {
	switch runtime.GOOS {
	case "windows":
		return "Windows WASAPI"
	case "darwin":
		return "Core Audio"
	}
	return runtime.GOOS
}

func (m *malgoContext) describe(kind malgo.DeviceType, d malgo.DeviceInfo) DeviceInfo {
	info := DeviceInfo{
		ID:                hex.EncodeToString(d.ID.Pointer()[:]),
		Name:              d.Name(),
		HostAPI:           hostAPI(),
		MaxInputChannels:  2,
		DefaultSampleRate: 48000,
	}
	full, err := m.ctx.DeviceInfo(kind, d.ID, malgo.Shared)
	if err != nil {
		return info
	}
	var maxCh, rate uint32
	for i := uint32(0); i < full.FormatCount && int(i) < len(full.Formats); i++ {
		f := full.Formats[i]
		maxCh = max(maxCh, f.Channels)
		if rate == 0 && f.SampleRate > 0 {
			rate = f.SampleRate
		}
	}
	if maxCh > 0 {
		info.MaxInputChannels = maxCh
	}
	if rate > 0 {
		info.DefaultSampleRate = rate
	}
	return info
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	var result []DeviceInfo
	for _, d := range devices {
		result = append(result, m.describe(malgo.Capture, d))
	}

	// WASAPI can record any render endpoint in loopback mode.
	if runtime.GOOS == "windows" {
		outputs, err := m.ctx.Devices(malgo.Playback)
		if err == nil {
			for _, d := range outputs {
				info := m.describe(malgo.Playback, d)
				info.ID = loopbackPrefix + info.ID
				info.Name += " [Loopback]"
				result = append(result, info)
			}
		}
	}
	return result, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	kind := malgo.Capture
	id := ""
	if device != nil {
		id = device.ID
		if strings.HasPrefix(id, loopbackPrefix) {
			kind = malgo.Loopback
			id = strings.TrimPrefix(id, loopbackPrefix)
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(kind)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate
	deviceConfig.PeriodSizeInFrames = config.BlockSize

	if id != "" {
		idBytes, err := hex.DecodeString(id)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	c := &malgoCapture{name: "system default", channels: config.Channels}
	if device != nil {
		c.name = device.Name
	}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			cb := c.callback.Load()
			if cb == nil {
				return
			}
			var status Status
			if uint32(len(data)) < frameCount*c.channels*2 {
				status = "short buffer"
			}
			(*cb)(data, frameCount, status)
		},
		Stop: func() {
			c.stopped.Store(true)
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) Close() {
	_ = m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	device   *malgo.Device
	name     string
	channels uint32
	callback atomic.Pointer[DataCallback]
	stopped  atomic.Bool
}

func (c *malgoCapture) Start() error {
	c.stopped.Store(false)
	if err := c.device.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return nil
}

func (c *malgoCapture) Active() bool {
	return c.device.IsStarted() && !c.stopped.Load()
}

func (c *malgoCapture) Stop() {
	_ = c.device.Stop()
}

func (c *malgoCapture) Close() {
	c.device.Uninit()
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.callback.Store(&cb)
}

func (c *malgoCapture) ClearCallback() {
	c.callback.Store(nil)
}

func (c *malgoCapture) DeviceName() string { return c.name }
