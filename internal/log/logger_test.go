package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"fingate/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestLoggerSplitsStreams(t *testing.T) {
	var stdout, stderr bytes.Buffer
	conf := &config.Configuration{}
	conf.App.Name = "fingate"
	conf.Log.Level = "debug"

	logger := newLogger(conf, zapcore.AddSync(&stdout), zapcore.AddSync(&stderr))
	logger.Debug("debug line")
	logger.Warn("warn line")
	require.NoError(t, logger.Sync())

	assert.Contains(t, stdout.String(), "debug line")
	assert.NotContains(t, stdout.String(), "warn line")
	assert.Contains(t, stderr.String(), "warn line")

	lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "fingate", entry["service"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	conf := &config.Configuration{}
	conf.Log.Level = "error"

	logger := newLogger(conf, zapcore.AddSync(&stdout), zapcore.AddSync(&stderr))
	logger.Warn("dropped")
	logger.Error("kept")
	require.NoError(t, logger.Sync())

	assert.Empty(t, stdout.String())
	assert.NotContains(t, stderr.String(), "dropped")
	assert.Contains(t, stderr.String(), "kept")
}
