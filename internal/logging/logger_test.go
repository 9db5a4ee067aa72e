package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regrada-ai/finetune/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates logger with JSON format", func(t *testing.T) {
		logger, err := NewLogger(config.LogConfig{Level: "info", Format: "json"})

		assert.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("creates logger with console format", func(t *testing.T) {
		logger, err := NewLogger(config.LogConfig{Level: "debug", Format: "console"})

		assert.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("defaults to info level for invalid level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := newLogger(config.LogConfig{Level: "invalid", Format: "json"}, &buf)
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("shown")
		require.NoError(t, logger.Sync())

		var entry map[string]any
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
		assert.Equal(t, "shown", entry["message"])
		assert.Equal(t, "info", entry["level"])
	})
}
