package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cristianoliveira/leadsync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmp)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("HOME", tmp)
	config.Load()
	return tmp
}

func lastJSONLine(t *testing.T, data string) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(data), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestConfigFromGlobal(t *testing.T) {
	setupTest(t)
	t.Setenv("LEADSYNC_LOGGING_ENABLED", "true")
	t.Setenv("LEADSYNC_LOGGING_LEVEL", "warn")
	t.Setenv("LEADSYNC_LOGGING_MAX_FILES", "5")
	config.Load()

	cfg := FromGlobalConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, "warn", cfg.Level)
	require.Equal(t, 5, cfg.MaxFiles)
	require.Equal(t, filepath.Base(os.Args[0]), cfg.Command)
	require.Equal(t, os.Getpid(), cfg.PID)
}

func TestDebugForcesDebugLevel(t *testing.T) {
	setupTest(t)
	t.Setenv("LEADSYNC_DEBUG", "true")
	t.Setenv("LEADSYNC_LOGGING_LEVEL", "error")
	config.Load()

	require.Equal(t, "debug", FromGlobalConfig().Level)
}

func TestLogDir(t *testing.T) {
	tmp := setupTest(t)

	stateDir := config.Get("state_dir", "")
	require.True(t, strings.HasPrefix(stateDir, tmp), "state_dir %s not in temp dir %s", stateDir, tmp)

	logDir, err := LogDir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(stateDir, "logs"), logDir)
	info, err := os.Stat(logDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestInitDisabled(t *testing.T) {
	logger, err := Init(Config{Enabled: false})
	require.NoError(t, err)
	require.IsType(t, noopLogger{}, logger)
	logger.Debug("test")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test")
	require.NoError(t, logger.Shutdown())
}

func TestInitEnabledCreatesFile(t *testing.T) {
	setupTest(t)
	t.Setenv("LEADSYNC_LOGGING_ENABLED", "true")
	config.Load()

	cfg := FromGlobalConfig()
	cfg.Command = "testcmd"
	logger, err := Init(cfg)
	require.NoError(t, err)
	logger.Info("hello", "lead_id", 5)
	require.NoError(t, logger.Shutdown())

	logDir := filepath.Join(config.Get("state_dir", ""), "logs")
	entries, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	fname := entries[0].Name()
	require.True(t, strings.HasPrefix(fname, "leadsync_"))
	require.Contains(t, fname, fmt.Sprintf("_PID%d_", os.Getpid()))
	require.True(t, strings.HasSuffix(fname, "_testcmd.log"))

	data, err := os.ReadFile(filepath.Join(logDir, fname))
	require.NoError(t, err)
	entry := lastJSONLine(t, string(data))
	require.Equal(t, "hello", entry["msg"])
	require.Equal(t, float64(5), entry["lead_id"])
	require.Equal(t, "testcmd", entry["command"])
}

func TestNewWritesJSONAndHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("dropped")
	logger.Warn("kept", "page", 2)

	require.NotContains(t, buf.String(), "dropped")
	entry := lastJSONLine(t, buf.String())
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, float64(2), entry["page"])
}

func TestWithKeepsFieldsAndDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, "debug")
	child := base.With("component", "poller")

	child.Info("tick")
	entry := lastJSONLine(t, buf.String())
	require.Equal(t, "poller", entry["component"])

	base.Info("plain")
	entry = lastJSONLine(t, buf.String())
	require.NotContains(t, entry, "component")
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info")

	logger.Info("secrets", "password", "supersecret", "api_token", "xyz", "normal", "ok",
		"error", errors.New("request with Authorization: Bearer abc.def.ghi failed"))

	line := buf.String()
	assert.Contains(t, line, `"password":"[REDACTED]"`)
	assert.Contains(t, line, `"api_token":"[REDACTED]"`)
	assert.Contains(t, line, `"normal":"ok"`)
	assert.NotContains(t, line, "abc.def.ghi")
}

func TestRedactor_IsSensitive(t *testing.T) {
	r := newRedactor()
	tests := []struct {
		key  string
		want bool
	}{
		{"token", true},
		{"API_TOKEN", true},
		{"auth-header", true},
		{"tokenizer", false},
		{"lead_id", false},
		{"monkey", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, r.isSensitive(tt.key))
		})
	}
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		name := filepath.Join(dir, fmt.Sprintf("leadsync_%d.log", i))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.log"), []byte("x"), 0600))

	require.NoError(t, rotate(dir, 3))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var kept int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "leadsync_") {
			kept++
		}
	}
	assert.Equal(t, 2, kept)
	assert.FileExists(t, filepath.Join(dir, "other.log"))
}

func TestFormats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"page":2`},
		{"logfmt", "page=2"},
		{"text", "page=2"},
		{"unknown", `"page":2`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			NewWithFormat(&buf, "info", tt.format).Info("fetched", "page", 2)
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "fetched")
		})
	}
}

func TestConfigFormatAndDestination(t *testing.T) {
	setupTest(t)
	t.Setenv("LEADSYNC_LOGGING_FORMAT", "LOGFMT")
	t.Setenv("LEADSYNC_LOGGING_DESTINATION", "stderr")
	config.Load()

	cfg := FromGlobalConfig()
	assert.Equal(t, "logfmt", cfg.Format)
	assert.Equal(t, DestinationStderr, cfg.Destination)

	cfg.Enabled = true
	logger, err := Init(cfg)
	require.NoError(t, err)
	assert.Empty(t, logger.(*loggerImpl).filePath(), "stderr logging opens no file")
	require.NoError(t, logger.Shutdown())
}
