package logging

import (
	"strings"
	"sync"
)

// captureDepth is how many recent log lines the dashboard can pull.
const captureDepth = 50

// LogCaptureWriter is a thread-safe writer that keeps a ring of recent lines.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
	next  int
	full  bool
}

// GlobalLogCapture is the singleton instance for capturing logs.
var GlobalLogCapture = NewLogCaptureWriter()

// NewLogCaptureWriter creates an empty capture writer.
func NewLogCaptureWriter() *LogCaptureWriter {
	return &LogCaptureWriter{lines: make([]string, captureDepth)}
}

// Write implements io.Writer. Each write is treated as one line.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines[w.next] = strings.TrimRight(string(p), "\n")
	w.next = (w.next + 1) % len(w.lines)
	if w.next == 0 {
		w.full = true
	}
	return len(p), nil
}

// LastLine returns the most recent log line.
func (w *LogCaptureWriter) LastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	idx := (w.next - 1 + len(w.lines)) % len(w.lines)
	return w.lines[idx]
}

// Lines returns the captured lines, oldest first.
func (w *LogCaptureWriter) Lines() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []string
	if w.full {
		out = append(out, w.lines[w.next:]...)
	}
	out = append(out, w.lines[:w.next]...)

	// Drop any empty slots from a fresh writer.
	res := make([]string, 0, len(out))
	for _, l := range out {
		if l != "" {
			res = append(res, l)
		}
	}
	return res
}
