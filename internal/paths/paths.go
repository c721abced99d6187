// Package paths locates the extractor's files on disk.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// BaseDir returns ~/.imsgx.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".imsgx")
}

// ConfigPath returns the config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// LogDir returns the log directory.
func LogDir() string {
	return filepath.Join(BaseDir(), "logs")
}

// LogPath returns the log file path.
func LogPath() string {
	return filepath.Join(LogDir(), "imsgx.log")
}

// DefaultOutputPath returns where conversation_clean is written unless configured otherwise.
func DefaultOutputPath() string {
	return filepath.Join(BaseDir(), "conversation.db")
}

// DefaultSourcePath returns the Messages database of the current user.
func DefaultSourcePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "Messages", "chat.db")
}

// Expand replaces a leading ~ with the home directory.
func Expand(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// EnsureDir creates dir and its parents with owner-only permissions.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}
