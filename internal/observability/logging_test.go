package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/knw/internal/config"
)

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		for _, format := range []string{"json", "console"} {
			logger, err := NewLogger(config.LoggingConfig{Level: level, Format: format}, "knwserver")
			require.NoError(t, err, "%s/%s", level, format)
			assert.NotNil(t, logger)
		}
	}
}

func TestNewLogger_Invalid(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"}, "knwserver")
	assert.ErrorContains(t, err, "trace")
	_, err = NewLogger(config.LoggingConfig{Level: "info", Format: "xml"}, "knwserver")
	assert.ErrorContains(t, err, "xml")
}

func TestNewLoggerTo_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggingConfig{Level: "info", Format: "json"}, "knwctl", zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("record opened", zap.String("id", "org"))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug entries are filtered at info")
	entry := gjson.Parse(lines[0])
	assert.Equal(t, "record opened", entry.Get("msg").String())
	assert.Equal(t, "info", entry.Get("level").String())
	assert.Equal(t, "knwctl", entry.Get("service").String())
	assert.Equal(t, "org", entry.Get("id").String())
	assert.True(t, entry.Get("caller").Exists())
}

func TestNewLoggerTo_ConsoleDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(config.LoggingConfig{Level: "debug", Format: "console"}, "", zapcore.AddSync(&buf))
	require.NoError(t, err)
	logger.Debug("dice roll", zap.Int("total", 17))
	require.NoError(t, logger.Sync())
	assert.Contains(t, buf.String(), "dice roll")
	assert.Contains(t, buf.String(), `"total": 17`)
	assert.NotContains(t, buf.String(), "service")
}
