package log

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupLogDir(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	SetDir(tmp)
	t.Cleanup(func() { Close(); SetDir("") })
	return tmp
}

func TestResolveDirFlag(t *testing.T) {
	got, err := ResolveDir("/tmp/mylog")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/mylog" {
		t.Errorf("got %q, want /tmp/mylog", got)
	}
}

func TestResolveDirFlagRelative(t *testing.T) {
	got, err := ResolveDir("logs")
	if err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(wd, "logs"); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveDirEnv(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/traductor-env-log")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/traductor-env-log" {
		t.Errorf("got %q, want /tmp/traductor-env-log", got)
	}
}

func TestResolveDirDefault(t *testing.T) {
	t.Setenv(EnvPath, "")
	got, err := ResolveDir("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, appDir) {
		t.Errorf("default dir %q does not mention %s", got, appDir)
	}
}

func TestInitCreatesFiles(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{diagFileName, translationFileName} {
		if _, err := os.Stat(filepath.Join(tmp, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestTranslationLine(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	Translation("audio", "hello\nworld", "hola mundo")

	data, err := os.ReadFile(filepath.Join(tmp, translationFileName))
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSuffix(string(data), "\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		t.Fatalf("got %d fields in %q, want 5", len(fields), line)
	}
	if fields[2] != "audio" || fields[3] != "hello world" || fields[4] != "hola mundo" {
		t.Errorf("unexpected fields %q", fields)
	}
}

func TestDiagnosticsRecordEvents(t *testing.T) {
	tmp := setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}

	DeviceProbe("USB Microphone", "MME", errors.New("busy"))
	FrameDropped("input overflow")
	SessionEnd("abc", SessionStats{Frames: 10, Finals: 2, Unprocessed: 3, AudioSecs: 1.5})

	data, err := os.ReadFile(filepath.Join(tmp, diagFileName))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"device_probe", "busy", "frame_dropped", "session_end", "frames=10", "unprocessed=3", "audio_secs=1.5"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("diagnostics missing %q:\n%s", want, data)
		}
	}
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	Close()
	Info("ignored")
	Translation("audio", "a", "b")
}

func TestCloseIdempotent(t *testing.T) {
	setupLogDir(t)
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	Close()
	Close()
}
