// Package logging wires the slog backend used across the server. Subsystem
// loggers share one backend writing to stderr and, when configured, a
// rotated log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Config controls the shared log backend.
type Config struct {
	// LogFile is the rotated log file path. Empty disables file logging.
	LogFile string
	// DebugLevel is either a single level name ("info") or a per-subsystem
	// spec ("SRV=debug,GAME=trace").
	DebugLevel string
	// MaxLogFiles is how many rolled files to keep.
	MaxLogFiles int
}

// Backend owns the slog backend and hands out subsystem loggers.
type Backend struct {
	mu      sync.Mutex
	backend *slog.Backend
	rotator *rotator.Rotator
	loggers map[string]slog.Logger
	levels  map[string]slog.Level
	defLvl  slog.Level
}

// logWriter fans log output to stderr and the rotator.
type logWriter struct {
	r *rotator.Rotator
}

func (w *logWriter) Write(p []byte) (int, error) {
	os.Stderr.Write(p)
	if w.r != nil {
		return w.r.Write(p)
	}
	return len(p), nil
}

// NewBackend creates the shared backend. The log directory is created when a
// log file is configured.
func NewBackend(cfg Config) (*Backend, error) {
	var rot *rotator.Rotator
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		maxFiles := cfg.MaxLogFiles
		if maxFiles <= 0 {
			maxFiles = 5
		}
		var err error
		rot, err = rotator.New(cfg.LogFile, 32*1024, false, maxFiles)
		if err != nil {
			return nil, fmt.Errorf("create log rotator: %w", err)
		}
	}

	b := &Backend{
		backend: slog.NewBackend(&logWriter{r: rot}),
		rotator: rot,
		loggers: make(map[string]slog.Logger),
		levels:  make(map[string]slog.Level),
		defLvl:  slog.LevelInfo,
	}
	b.parseLevels(cfg.DebugLevel)
	return b, nil
}

// Logger returns the logger for a subsystem tag, creating it on first use.
func (b *Backend) Logger(subsystem string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l, ok := b.loggers[subsystem]; ok {
		return l
	}
	l := b.backend.Logger(subsystem)
	lvl := b.defLvl
	if sub, ok := b.levels[subsystem]; ok {
		lvl = sub
	}
	l.SetLevel(lvl)
	b.loggers[subsystem] = l
	return l
}

// Close flushes and closes the rotated log file.
func (b *Backend) Close() error {
	if b.rotator != nil {
		return b.rotator.Close()
	}
	return nil
}

// parseLevels interprets the debug level spec.
func (b *Backend) parseLevels(spec string) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return
	}
	if !strings.Contains(spec, "=") {
		if lvl, ok := slog.LevelFromString(spec); ok {
			b.defLvl = lvl
		}
		return
	}
	for _, part := range strings.Split(spec, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if lvl, ok := slog.LevelFromString(strings.TrimSpace(kv[1])); ok {
			b.levels[strings.TrimSpace(kv[0])] = lvl
		}
	}
}

// Disabled is a logger that drops everything, for tests.
var Disabled slog.Logger = slog.Disabled

var _ io.Writer = (*logWriter)(nil)
