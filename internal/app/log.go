package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults used when the config leaves them unset.
const (
	defaultLogMaxSizeMB  = 10
	defaultLogMaxBackups = 5
)

// syncHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
type syncHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	runID string
	level slog.Leveler
	attrs []slog.Attr
}

func newSyncHandler(w io.Writer, runID string, level slog.Leveler) *syncHandler {
	return &syncHandler{mu: &sync.Mutex{}, w: w, runID: runID, level: level}
}

func (h *syncHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.level == nil || level >= h.level.Level()
}

func (h *syncHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.runID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, "\t%s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	// Workers log concurrently; one Write per record keeps lines whole.
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *syncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &syncHandler{
		mu:    h.mu,
		w:     h.w,
		runID: h.runID,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *syncHandler) WithGroup(string) slog.Handler { return h }

// parseLevel maps a config log_level to a slog level. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// logOptions configures newLogger.
type logOptions struct {
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	// Stderr receives a copy of every record. Nil means no console output.
	Stderr io.Writer
}

// newLogger creates a structured logger that writes to dir/albumsync.log,
// rotated by size, and to opts.Stderr. It returns the logger and the rotating
// file writer, which the caller must close.
func newLogger(opts logOptions, runID string) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	maxSize, maxBackups := opts.MaxSizeMB, opts.MaxBackups
	if maxSize <= 0 {
		maxSize = defaultLogMaxSizeMB
	}
	if maxBackups <= 0 {
		maxBackups = defaultLogMaxBackups
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, "albumsync.log"),
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}

	var w io.Writer = file
	if opts.Stderr != nil {
		w = io.MultiWriter(file, opts.Stderr)
	}
	return slog.New(newSyncHandler(w, runID, level)), file, nil
}

// slogAdapter wraps *slog.Logger to satisfy the syncer.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
