package log

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "traductor"

func getDefaultDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appDir, "logs"), nil
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Logs", appDir), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appDir, "logs"), nil
}

// CrashLogPath is where panics and stderr are redirected once the log
// directory is known.
func CrashLogPath() string {
	return filepath.Join(dir, "crash_log.txt")
}
