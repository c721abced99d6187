package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "imsgx.log")

	logger, err := New(path, "info")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("extraction finished")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"msg":"extraction finished"`)) {
		t.Errorf("log file missing info entry: %s", data)
	}
	if !bytes.Contains(data, []byte(`"pid":`)) {
		t.Errorf("log file missing pid field: %s", data)
	}
	if bytes.Contains(data, []byte("hidden")) {
		t.Error("debug entry written at info level")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "x.log"), "chatty"); err == nil {
		t.Error("New() accepted an unknown level")
	}
}
