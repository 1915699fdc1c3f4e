// Package logging configures the process-wide log sink used by the core.
//
// It never installs a package-level singleton: Init returns a *slog.Logger
// that callers must pass explicitly into every constructed component, per
// the "no globally accessible logger" redesign note.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Init configures slog to log to both stdout and a file under dir. It
// returns the logger and the opened file so callers can Close() it on
// shutdown. If the file cannot be opened, it falls back to stdout only.
func Init(dir string, level slog.Level) (*slog.Logger, *os.File) {
	if dir == "" {
		dir = "./logs"
	}
	_ = os.MkdirAll(dir, 0o755)

	path := filepath.Join(dir, "hydropumpd.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		logger.Error("failed to open log file; falling back to stdout only", "error", err, "path", path)
		return logger, nil
	}

	w := NewMultiWriter(f, os.Stdout)
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h), f
}

// NewMultiWriter duplicates writes to all provided writers.
func NewMultiWriter(writers ...io.Writer) io.Writer {
	return io.MultiWriter(writers...)
}
