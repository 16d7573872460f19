package recognizer

import (
	"encoding/json"
	"fmt"
)

// jsonField extracts a string field from a decoder's JSON output.
func jsonField(raw, field string) (string, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	v, ok := m[field]
	if !ok {
		return "", fmt.Errorf("%w: missing %q in %s", ErrDecode, field, raw)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: %q is not a string", ErrDecode, field)
	}
	return s, nil
}

func parseFinal(raw string) (Hypothesis, error) {
	text, err := jsonField(raw, "text")
	return Hypothesis{Final: true, Text: text}, err
}

func parsePartial(raw string) (Hypothesis, error) {
	text, err := jsonField(raw, "partial")
	return Hypothesis{Text: text}, err
}

// acceptStatus interprets the return code of a waveform decoder: 1 ends an
// utterance, 0 continues it and -1 means the decoder rejected the audio.
func acceptStatus(code int, result, partial func() string) (Hypothesis, error) {
	switch code {
	case 0:
		return parsePartial(partial())
	case 1:
		return parseFinal(result())
	}
	return Hypothesis{}, fmt.Errorf("%w: decoder returned %d", ErrDecode, code)
}
