//go:build !vosk

package recognizer

import "fmt"

const DefaultBackend = "deepgram"

func loadVosk(Config, uint32) (Model, error) {
	return nil, fmt.Errorf("%w: built without vosk support (rebuild with -tags vosk)", ErrModelMissing)
}
