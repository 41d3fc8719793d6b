package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// JSONLWriter appends JSON lines to a size-rotated file.
type JSONLWriter struct {
	path   string
	logger *lumberjack.Logger
	mu     sync.Mutex
	closed bool
}

// NewJSONLWriter opens a writer for dir/name. The file is created on the
// first write.
func NewJSONLWriter(dir, name string, maxSizeMB int) (*JSONLWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonl writer: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	return &JSONLWriter{
		path: path,
		logger: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    maxSizeMB,
			MaxBackups: 3,
			Compress:   false,
			LocalTime:  true,
		},
	}, nil
}

// Path returns the file the writer appends to.
func (w *JSONLWriter) Path() string {
	return w.path
}

// Write marshals record and appends it as one line.
func (w *JSONLWriter) Write(record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("jsonl writer: marshal: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("Failed to write record", "error", err, "file", w.path)
		return fmt.Errorf("jsonl writer: write: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.logger.Close()
}
