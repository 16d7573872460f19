package audio

import (
	"errors"
	"testing"
)

func mic(id, name string) FakeDevice {
	return FakeDevice{Info: DeviceInfo{ID: id, Name: name, HostAPI: "MME", MaxInputChannels: 1, DefaultSampleRate: 44100}}
}

func TestListExcludesDevicesThatFailToOpen(t *testing.T) {
	broken := mic("2", "Broken Microphone")
	broken.OpenErr = errors.New("busy")
	ctx := NewFakeContext(mic("1", "USB Microphone"), broken, mic("3", "Line In"))

	devices := NewCatalog(ctx, nil).List()
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	for _, d := range devices {
		if d.ID() == "2" {
			t.Errorf("device %q should have been excluded", d.Info.Name)
		}
	}
	if n := ctx.OpenCount(); n != 0 {
		t.Errorf("probing left %d devices open", n)
	}
}

func TestListPlacesStereoMixFirst(t *testing.T) {
	mix := mic("9", "Stereo Mix (Realtek Audio)")
	mix.Info.MaxInputChannels = 2
	ctx := NewFakeContext(mic("1", "Microphone (USB)"), mic("2", "Headset Earphone"), mix)

	devices := NewCatalog(ctx, nil).List()
	if len(devices) != 3 {
		t.Fatalf("got %d devices, want 3", len(devices))
	}
	if devices[0].ID() != "9" {
		t.Errorf("first device = %q, want stereo mix", devices[0].Info.Name)
	}
	if devices[0].Label != "🔊 System audio (Stereo Mix)" {
		t.Errorf("label = %q", devices[0].Label)
	}
	if devices[1].ID() != "1" || devices[2].ID() != "2" {
		t.Errorf("host order not preserved: %q, %q", devices[1].ID(), devices[2].ID())
	}
}

func TestListSkipsOutputOnly(t *testing.T) {
	out := mic("1", "Speakers")
	out.Info.MaxInputChannels = 0
	ctx := NewFakeContext(out)
	if got := NewCatalog(ctx, nil).List(); len(got) != 0 {
		t.Errorf("got %d devices, want 0", len(got))
	}
}

func TestListHostFailureYieldsEmpty(t *testing.T) {
	ctx := NewFakeContext(mic("1", "Microphone"))
	ctx.FailListing(errors.New("host exploded"))

	var reported error
	cat := NewCatalog(ctx, nil, WithFailureHook(func(err error) { reported = err }))
	if got := cat.List(); len(got) != 0 {
		t.Errorf("got %d devices, want 0", len(got))
	}
	if !errors.Is(reported, ErrDeviceUnavailable) {
		t.Errorf("reported %v, want ErrDeviceUnavailable", reported)
	}
}

func TestResolveVirtualDevice(t *testing.T) {
	dev := mic("v", "HyperX Virtual Surround Sound")
	dev.Info.MaxInputChannels = 2
	dev.Info.DefaultSampleRate = 48000
	cfg, err := NewCatalog(NewFakeContext(dev), nil).Resolve("v")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 16000 || cfg.Channels != 1 || !cfg.Virtual {
		t.Errorf("got rate=%d channels=%d virtual=%v, want 16000/1/true", cfg.SampleRate, cfg.Channels, cfg.Virtual)
	}
	if cfg.BlockSize != 2048 {
		t.Errorf("block size = %d, want 2048", cfg.BlockSize)
	}
}

func TestResolveLoopbackUsesStereoNativeRate(t *testing.T) {
	dev := mic("l", "Speakers (Realtek) [Loopback]")
	dev.Info.HostAPI = "Windows WASAPI"
	dev.Info.MaxInputChannels = 2
	dev.Info.DefaultSampleRate = 48000
	cfg, err := NewCatalog(NewFakeContext(dev), nil).Resolve("l")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 48000 || cfg.Channels != 2 || cfg.Virtual {
		t.Errorf("got rate=%d channels=%d virtual=%v, want 48000/2/false", cfg.SampleRate, cfg.Channels, cfg.Virtual)
	}
	if cfg.BlockSize != 4096 {
		t.Errorf("block size = %d, want 4096", cfg.BlockSize)
	}
}

func TestResolveWASAPINameIsStereo(t *testing.T) {
	dev := mic("w", "Headphones (WASAPI)")
	dev.Info.MaxInputChannels = 2
	cfg, err := NewCatalog(NewFakeContext(dev), nil).Resolve("w")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Channels != 2 || cfg.BlockSize != 4096 {
		t.Errorf("got channels=%d block=%d, want 2/4096", cfg.Channels, cfg.BlockSize)
	}

	dev.Info.MaxInputChannels = 1
	cfg, err = NewCatalog(NewFakeContext(dev), nil).Resolve("w")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Channels != 1 {
		t.Errorf("mono-only endpoint got %d channels", cfg.Channels)
	}
}

func TestResolveMicrophoneIsMonoNativeRate(t *testing.T) {
	cfg, err := NewCatalog(NewFakeContext(mic("m", "Microphone (USB)")), nil).Resolve("m")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 44100 || cfg.Channels != 1 {
		t.Errorf("got rate=%d channels=%d, want 44100/1", cfg.SampleRate, cfg.Channels)
	}
}

func TestResolveBlockSizeOverride(t *testing.T) {
	cat := NewCatalog(NewFakeContext(mic("m", "Microphone")), nil, WithBlockSize(512))
	cfg, err := cat.Resolve("m")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BlockSize != 512 {
		t.Errorf("block size = %d, want 512", cfg.BlockSize)
	}
}

func TestResolveUnknownDevice(t *testing.T) {
	_, err := NewCatalog(NewFakeContext(), nil).Resolve("nope")
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("got %v, want ErrDeviceUnavailable", err)
	}
}

func TestProbeFailure(t *testing.T) {
	dev := mic("m", "Microphone")
	dev.OpenErr = errors.New("exclusive mode")
	cat := NewCatalog(NewFakeContext(dev), nil)
	cfg, err := cat.Resolve("m")
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Probe(cfg); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("got %v, want ErrDeviceUnavailable", err)
	}
}
