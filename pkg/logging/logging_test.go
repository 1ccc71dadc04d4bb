package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendDefaultLevel(t *testing.T) {
	b, err := NewBackend(Config{})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, slog.LevelInfo, b.Logger("SRV").Level())
}

func TestSingleLevelSpec(t *testing.T) {
	b, err := NewBackend(Config{DebugLevel: "debug"})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, slog.LevelDebug, b.Logger("SRV").Level())
	assert.Equal(t, slog.LevelDebug, b.Logger("GAME").Level())
}

func TestPerSubsystemSpec(t *testing.T) {
	b, err := NewBackend(Config{DebugLevel: "SRV=debug, GAME=trace"})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, slog.LevelDebug, b.Logger("SRV").Level())
	assert.Equal(t, slog.LevelTrace, b.Logger("GAME").Level())
	assert.Equal(t, slog.LevelInfo, b.Logger("BOT").Level())
}

func TestLoggersAreReused(t *testing.T) {
	b, err := NewBackend(Config{})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, b.Logger("SRV"), b.Logger("SRV"))
}

func TestFileLoggingCreatesDirectory(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "server.log")
	b, err := NewBackend(Config{LogFile: logFile, DebugLevel: "info"})
	require.NoError(t, err)

	b.Logger("SRV").Infof("hello")
	require.NoError(t, b.Close())

	info, err := os.Stat(logFile)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}
