package audio

import "strings"

type Class int

const (
	ClassUnknown Class = iota
	ClassMicrophone
	ClassHeadset
	ClassLoopback
	ClassVirtual
)

func (c Class) String() string {
	switch c {
	case ClassMicrophone:
		return "microphone"
	case ClassHeadset:
		return "headset"
	case ClassLoopback:
		return "loopback"
	case ClassVirtual:
		return "virtual"
	}
	return "unknown"
}

// Classifier assigns a device class from its host-reported identity.
type Classifier interface {
	Classify(info DeviceInfo) Class
}

var (
	stereoMixKeywords = []string{"stereo mix", "mezcla estéreo", "what u hear", "lo que escuchas"}
	monitorKeywords   = []string{"monitor of", ".monitor", "[loopback]"}
	virtualKeywords   = []string{"hyperx virtual surround"}
	headsetKeywords   = []string{"headphone", "auricular", "headset"}
	micKeywords       = []string{"microphone", "micrófono", "mic"}
)

// NameClassifier matches keyword lists against device and host API names.
type NameClassifier struct{}

func (NameClassifier) Classify(info DeviceInfo) Class {
	name := strings.ToLower(info.Name)
	host := strings.ToLower(info.HostAPI)
	switch {
	case containsAny(name, virtualKeywords):
		return ClassVirtual
	case containsAny(name, stereoMixKeywords),
		containsAny(name, monitorKeywords),
		strings.Contains(host, "wasapi") && strings.Contains(name, "loopback"):
		return ClassLoopback
	case containsAny(name, headsetKeywords), IsBluetooth(name):
		return ClassHeadset
	case containsAny(name, micKeywords):
		return ClassMicrophone
	}
	return ClassUnknown
}

// isStereoMix reports loopback endpoints that the host exposes as a
// dedicated mix input rather than a monitor of a specific sink.
func isStereoMix(info DeviceInfo) bool {
	return containsAny(strings.ToLower(info.Name), stereoMixKeywords)
}

func label(info DeviceInfo, class Class) string {
	switch class {
	case ClassLoopback:
		if isStereoMix(info) {
			return "🔊 System audio (Stereo Mix)"
		}
		return "🔊 System audio: " + info.Name
	case ClassVirtual:
		return "🎧 " + info.Name + " (virtual)"
	case ClassHeadset:
		return "🎧 " + info.Name
	case ClassMicrophone:
		return "🎤 " + info.Name
	}
	return "🎙️ " + info.Name
}
