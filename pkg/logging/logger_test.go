package logging

import (
	"os"
	"path/filepath"
	"testing"

	"impactgo/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")
	requestLog := filepath.Join(tempDir, "requests.log")

	cfg := &config.LogConfig{
		Server: config.LogSettings{
			Path:  serverLog,
			Level: "DEBUG",
		},
		Requests: config.LogSettings{
			Path:  requestLog,
			Level: "INFO",
		},
	}

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer cleanup()

	if _, err := os.Stat(serverLog); os.IsNotExist(err) {
		t.Error("Server log file not created")
	}
	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}

	if RequestLogger == nil {
		t.Error("RequestLogger was not initialized")
	}
}

func TestLogCaptureWriter(t *testing.T) {
	w := NewLogCaptureWriter()

	if got := w.LastLine(); got != "" {
		t.Errorf("LastLine on empty writer = %q, want empty", got)
	}
	if got := w.Lines(); len(got) != 0 {
		t.Errorf("Lines on empty writer = %v, want none", got)
	}

	w.Write([]byte("first\n"))
	w.Write([]byte("second\n"))

	if got := w.LastLine(); got != "second" {
		t.Errorf("LastLine = %q, want %q", got, "second")
	}
	lines := w.Lines()
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Errorf("Lines = %v, want [first second]", lines)
	}
}

func TestLogCaptureWriterWrap(t *testing.T) {
	w := NewLogCaptureWriter()
	for i := 0; i < captureDepth+10; i++ {
		w.Write([]byte{byte('a' + i%26)})
	}

	lines := w.Lines()
	if len(lines) != captureDepth {
		t.Errorf("Lines after wrap = %d entries, want %d", len(lines), captureDepth)
	}
	last := string([]byte{byte('a' + (captureDepth+9)%26)})
	if got := w.LastLine(); got != last {
		t.Errorf("LastLine after wrap = %q, want %q", got, last)
	}
}
