//go:build vosk

package recognizer

import (
	"context"
	"fmt"
	"os"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
)

const DefaultBackend = "vosk"

var (
	voskMu     sync.Mutex
	voskModels = map[string]*voskShared{}
)

// voskShared is one loaded model directory, shared by every sample rate.
type voskShared struct {
	model *vosk.VoskModel
	refs  int
}

type voskModel struct {
	path   string
	shared *voskShared
	rate   uint32
}

func loadVosk(cfg Config, sampleRate uint32) (Model, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: no model path configured", ErrModelMissing)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelMissing, cfg.ModelPath)
	}

	voskMu.Lock()
	defer voskMu.Unlock()
	shared, ok := voskModels[cfg.ModelPath]
	if !ok {
		m, err := vosk.NewModel(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelMissing, err)
		}
		shared = &voskShared{model: m}
		voskModels[cfg.ModelPath] = shared
	}
	shared.refs++
	return &voskModel{path: cfg.ModelPath, shared: shared, rate: sampleRate}, nil
}

func (m *voskModel) Backend() string    { return "vosk" }
func (m *voskModel) SampleRate() uint32 { return m.rate }

func (m *voskModel) NewDecoder(_ context.Context) (Decoder, error) {
	rec, err := vosk.NewRecognizer(m.shared.model, float64(m.rate))
	if err != nil {
		return nil, fmt.Errorf("vosk recognizer: %w", err)
	}
	return &voskDecoder{rec: rec}, nil
}

func (m *voskModel) Close() error {
	voskMu.Lock()
	defer voskMu.Unlock()
	m.shared.refs--
	if m.shared.refs <= 0 {
		m.shared.model.Free()
		delete(voskModels, m.path)
	}
	return nil
}

type voskDecoder struct {
	rec *vosk.VoskRecognizer
}

func (d *voskDecoder) Decode(pcm []byte) (Hypothesis, error) {
	return acceptStatus(d.rec.AcceptWaveform(pcm), d.rec.Result, d.rec.PartialResult)
}

func (d *voskDecoder) Close() error {
	d.rec.Free()
	return nil
}
