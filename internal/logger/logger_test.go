package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "ipsentry.log")

	log, err := New("test", &Config{File: file, Level: "debug"})
	require.NoError(t, err)

	log.Info("hello from test")
	log.Named("store").Debug("from a component")
	_ = log.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "hello from test", first["msg"])
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "test", first["app"])
	assert.EqualValues(t, os.Getpid(), first["pid"])
	assert.NotContains(t, first, "component")

	assert.Equal(t, "store", second["component"])
	assert.Equal(t, "test", second["app"])
}

func TestLevelFiltersFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ipsentry.log")

	log, err := New("test", &Config{File: file, Level: "warn"})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("kept")
	_ = log.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"level":"warn"`)
}

func TestSetDefaults(t *testing.T) {
	cfg := (&Config{}).SetDefaults()
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 28, cfg.MaxAge)
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console, "console output is forced without a file")
}

func TestValidateRejectsUnknownLevel(t *testing.T) {
	_, err := New("test", &Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestGetZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, getZapLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, getZapLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, getZapLevel("bogus"))
}
