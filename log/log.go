package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	diagFileName        = "diagnostics_log.txt"
	translationFileName = "translations_log.txt"
	EnvPath             = "TRADUCTOR_LOG_PATH"
)

var (
	diagLog         zerolog.Logger
	diagFile        *os.File
	translationFile *os.File
	logMu           sync.Mutex
	logReady        atomic.Bool
	pid             int
	dir             string
)

// RequestMetrics describes one outbound HTTP call.
type RequestMetrics struct {
	DNSTimeMs   float64
	TLSTimeMs   float64
	TTFBMs      float64
	TotalTimeMs float64
	ConnReused  bool
	TLSProto    string
}

type SessionStats struct {
	Frames     uint64
	Dropped    uint64
	Partials   int
	Finals     int
	Dispatched int
	Errors     int

	// Unprocessed counts frames still queued when the session ended.
	Unprocessed int
	AudioSecs   float64
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: environment
	if envPath := os.Getenv(EnvPath); envPath != "" {
		return absolute(envPath)
	}

	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, diagFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	translationFile, err = os.OpenFile(filepath.Join(dir, translationFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady.Store(true)
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady.Store(false)
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if translationFile != nil {
		translationFile.Close()
		translationFile = nil
	}
}

func Info(msg string) {
	if logReady.Load() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady.Load() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady.Load() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady.Load() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady.Load() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func DeviceProbe(name, hostAPI string, err error) {
	if !logReady.Load() {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Warn().Err(err)
	}
	ev.Str("device", name).Str("host_api", hostAPI).Bool("ok", err == nil).Msg("device_probe")
}

func FrameDropped(reason string) {
	if logReady.Load() {
		diagLog.Warn().Str("reason", reason).Msg("frame_dropped")
	}
}

func RequestTiming(provider string, m RequestMetrics) {
	if !logReady.Load() {
		return
	}
	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}
	ev := diagLog.Info().Str("provider", provider).Str("conn", connStatus)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	ev.Float64("dns_ms", m.DNSTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs).
		Msg("translate_request")
}

// Translation appends one line to the translation log:
// "time\t[pid]\tsource\toriginal\ttranslated".
func Translation(source, original, translated string) {
	if !logReady.Load() {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if translationFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, source, oneLine(original), oneLine(translated))
	translationFile.WriteString(line)
}

func TranslationFailure(source, text string, err error) {
	if logReady.Load() {
		diagLog.Error().Err(err).Str("source", source).Int("chars", len(text)).Msg("translation_failed")
	}
}

func SessionStart(id, device, backend string, sampleRate, channels uint32) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("session", id).
		Str("device", device).
		Str("backend", backend).
		Uint32("rate", sampleRate).
		Uint32("channels", channels).
		Msg("session_start")
}

func SessionEnd(id string, s SessionStats) {
	if !logReady.Load() {
		return
	}
	diagLog.Info().
		Str("session", id).
		Uint64("frames", s.Frames).
		Uint64("dropped", s.Dropped).
		Int("partials", s.Partials).
		Int("finals", s.Finals).
		Int("dispatched", s.Dispatched).
		Int("errors", s.Errors).
		Int("unprocessed", s.Unprocessed).
		Float64("audio_secs", s.AudioSecs).
		Msg("session_end")
}

func oneLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
}
