// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rpggio/tasklane/internal/config"
)

// Default size limits of a log file.
const (
	DefaultMaxBytes  = 6 * 1024 * 1024
	DefaultKeepBytes = 5 * 1024 * 1024
)

// New returns a text logger writing to cfg.Path when set and to fallback
// otherwise. The returned closer releases the file and is never nil.
func New(cfg config.LogConfig, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	w := fallback
	var closer io.Closer = nopCloser{}
	if cfg.Path != "" {
		f, err := OpenCappedFile(cfg.Path, DefaultMaxBytes, DefaultKeepBytes)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, f
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}))
	return logger, closer, nil
}

// ParseLevel maps debug, warn and error to their slog levels. Anything
// else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CappedFile is an append-only log file that drops its oldest bytes once it
// grows past maxBytes, keeping the newest keepBytes.
type CappedFile struct {
	mu        sync.Mutex
	file      *os.File
	maxBytes  int64
	keepBytes int64
}

// OpenCappedFile opens path for appending, creating parent directories.
func OpenCappedFile(path string, maxBytes, keepBytes int64) (*CappedFile, error) {
	if keepBytes <= 0 || keepBytes > maxBytes {
		return nil, fmt.Errorf("log file: keep size %d must be in (0, %d]", keepBytes, maxBytes)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("log file: %w", err)
	}
	c := &CappedFile{file: f, maxBytes: maxBytes, keepBytes: keepBytes}
	if err := c.trim(); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

func (c *CappedFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.file.Write(p)
	if err != nil {
		return n, err
	}
	return n, c.trim()
}

// Close closes the underlying file.
func (c *CappedFile) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// trim rewrites the file with its tail once it exceeds maxBytes.
func (c *CappedFile) trim() error {
	info, err := c.file.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size <= c.maxBytes {
		return nil
	}

	tail := make([]byte, c.keepBytes)
	n, err := c.file.ReadAt(tail, size-c.keepBytes)
	if err != nil && err != io.EOF {
		return err
	}
	if err := c.file.Truncate(0); err != nil {
		return err
	}
	// O_APPEND writes land at the new end after truncation.
	_, err = c.file.Write(tail[:n])
	return err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
