// internal/logging/logger_test.go
package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoggerConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		config := &LoggerConfig{
			Level:  LevelInfo,
			Format: FormatJSON,
		}
		err := config.Validate()
		assert.NoError(t, err)
	})

	t.Run("rejects invalid level", func(t *testing.T) {
		config := &LoggerConfig{Level: "invalid"}
		err := config.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "level")
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		config := &LoggerConfig{Format: "xml"}
		err := config.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "format")
	})

	t.Run("applies defaults", func(t *testing.T) {
		config := &LoggerConfig{}
		config.ApplyDefaults()
		assert.Equal(t, LevelInfo, config.Level)
		assert.Equal(t, FormatJSON, config.Format)
		assert.NotNil(t, config.Output)
	})
}

func TestNew(t *testing.T) {
	t.Run("creates logger with nil config", func(t *testing.T) {
		logger, _, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("writes json entries", func(t *testing.T) {
		var buf bytes.Buffer
		logger, _, err := New(&LoggerConfig{Level: LevelDebug, Output: &buf})
		require.NoError(t, err)

		logger.Debug("lookup done", zap.String("query", "matrix"))
		require.NoError(t, logger.Sync())

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "debug", entry["level"])
		assert.Equal(t, "lookup done", entry["msg"])
		assert.Equal(t, "matrix", entry["query"])
		assert.Contains(t, entry, "timestamp")
	})

	t.Run("filters below level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, _, err := New(&LoggerConfig{Level: LevelWarn, Output: &buf})
		require.NoError(t, err)

		logger.Info("hidden")
		assert.Empty(t, buf.String())

		logger.Warn("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("console format", func(t *testing.T) {
		var buf bytes.Buffer
		logger, _, err := New(&LoggerConfig{Format: FormatConsole, Output: &buf})
		require.NoError(t, err)

		logger.Info("hello")
		assert.Contains(t, buf.String(), "INFO")
		assert.Contains(t, buf.String(), "hello")
	})
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, atom, err := New(&LoggerConfig{Level: LevelInfo, Output: &buf})
	require.NoError(t, err)

	logger.Debug("before")
	assert.Empty(t, buf.String())

	require.NoError(t, SetLevel(atom, "debug"))
	logger.Debug("after")
	assert.Contains(t, buf.String(), "after")

	assert.Error(t, SetLevel(atom, "loud"))
}
