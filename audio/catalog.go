package audio

import (
	"fmt"
	"sort"
	"strings"
)

const (
	VirtualSampleRate = 16000

	probeSampleRate = 16000
	probeBlockSize  = 1024

	monoBlockSize   = 2048
	stereoBlockSize = 4096
)

// Device is a capture endpoint that opened successfully during enumeration.
type Device struct {
	Info  DeviceInfo
	Label string
	Class Class
}

func (d Device) ID() string { return d.Info.ID }

// DeviceConfig is the capture configuration resolved for a selected device.
type DeviceConfig struct {
	Device     Device
	SampleRate uint32
	Channels   uint32
	BlockSize  uint32
	Virtual    bool
}

func (c DeviceConfig) Capture() CaptureConfig {
	return CaptureConfig{SampleRate: c.SampleRate, Channels: c.Channels, BlockSize: c.BlockSize}
}

type Catalog struct {
	ctx        Context
	classifier Classifier
	blockSize  uint32
	onProbe    func(info DeviceInfo, err error)
	onFailure  func(err error)
}

type CatalogOption func(*Catalog)

// WithBlockSize overrides the per-callback frame count chosen from the channel layout.
func WithBlockSize(frames uint32) CatalogOption {
	return func(c *Catalog) { c.blockSize = frames }
}

// WithProbeHook observes every probe outcome during List.
func WithProbeHook(fn func(info DeviceInfo, err error)) CatalogOption {
	return func(c *Catalog) { c.onProbe = fn }
}

// WithFailureHook receives host enumeration errors, which List swallows.
func WithFailureHook(fn func(err error)) CatalogOption {
	return func(c *Catalog) { c.onFailure = fn }
}

func NewCatalog(ctx Context, classifier Classifier, opts ...CatalogOption) *Catalog {
	if classifier == nil {
		classifier = NameClassifier{}
	}
	c := &Catalog{ctx: ctx, classifier: classifier}
	for _, o := range opts {
		o(c)
	}
	return c
}

// List enumerates input-capable devices, keeping only those that open.
// Stereo-mix style loopback inputs are placed first. A failing host
// enumeration yields an empty list.
func (c *Catalog) List() []Device {
	infos, err := c.ctx.Devices()
	if err != nil {
		if c.onFailure != nil {
			c.onFailure(fmt.Errorf("%w: listing devices: %v", ErrDeviceUnavailable, err))
		}
		return nil
	}

	var devices []Device
	for _, info := range infos {
		if info.MaxInputChannels == 0 {
			continue
		}
		err := c.probe(info, CaptureConfig{SampleRate: probeSampleRate, Channels: 1, BlockSize: probeBlockSize})
		if c.onProbe != nil {
			c.onProbe(info, err)
		}
		if err != nil {
			continue
		}
		class := c.classifier.Classify(info)
		devices = append(devices, Device{Info: info, Label: label(info, class), Class: class})
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return isStereoMix(devices[i].Info) && !isStereoMix(devices[j].Info)
	})
	return devices
}

// Resolve computes the capture configuration for the device with the given
// id without opening it.
func (c *Catalog) Resolve(id string) (DeviceConfig, error) {
	infos, err := c.ctx.Devices()
	if err != nil {
		return DeviceConfig{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	for _, info := range infos {
		if info.ID != id {
			continue
		}
		class := c.classifier.Classify(info)
		cfg := DeviceConfig{
			Device:     Device{Info: info, Label: label(info, class), Class: class},
			SampleRate: info.DefaultSampleRate,
			Channels:   1,
		}
		switch class {
		case ClassVirtual:
			cfg.SampleRate = VirtualSampleRate
			cfg.Virtual = true
		case ClassLoopback:
			cfg.Channels = min(2, max(1, info.MaxInputChannels))
		default:
			// Endpoints named after WASAPI capture in stereo.
			if strings.Contains(strings.ToLower(info.Name), "wasapi") {
				cfg.Channels = min(2, max(1, info.MaxInputChannels))
			}
		}
		if cfg.SampleRate == 0 {
			cfg.SampleRate = VirtualSampleRate
		}
		cfg.BlockSize = c.blockSize
		if cfg.BlockSize == 0 {
			cfg.BlockSize = monoBlockSize
			if cfg.Channels > 1 {
				cfg.BlockSize = stereoBlockSize
			}
		}
		return cfg, nil
	}
	return DeviceConfig{}, fmt.Errorf("%w: no device with id %q", ErrDeviceUnavailable, id)
}

// Probe opens the device with cfg and closes it again.
func (c *Catalog) Probe(cfg DeviceConfig) error {
	probe := cfg.Capture()
	probe.BlockSize = max(1, cfg.SampleRate/10)
	return c.probe(cfg.Device.Info, probe)
}

func (c *Catalog) probe(info DeviceInfo, cfg CaptureConfig) error {
	dev, err := c.ctx.NewCapture(&info, cfg)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, info.Name, err)
	}
	defer dev.Close()
	if err := dev.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, info.Name, err)
	}
	dev.Stop()
	return nil
}
