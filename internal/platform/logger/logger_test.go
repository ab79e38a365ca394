package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbarlow/lectern-api/internal/config"
	"github.com/mbarlow/lectern-api/internal/platform/logger"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
	}{
		{name: "debug level", logLevel: "debug"},
		{name: "info level", logLevel: "info"},
		{name: "warn level", logLevel: "warn"},
		{name: "error level", logLevel: "error"},
		{name: "mixed case", logLevel: "INFO"},
		{name: "invalid level falls back to info", logLevel: "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := logger.Setup(config.ServerConfig{Port: 8080, LogLevel: tt.logLevel})
			require.NoError(t, err)
			require.NotNil(t, log)
			assert.Same(t, slog.Default(), log)
		})
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns stored logger", func(t *testing.T) {
		t.Parallel()

		_, stored := logger.SetupTestLogger(t, nil)
		ctx := logger.WithLogger(context.Background(), stored)
		assert.Same(t, stored, logger.FromContext(ctx))
	})

	t.Run("falls back to default", func(t *testing.T) {
		t.Parallel()

		assert.Same(t, slog.Default(), logger.FromContext(context.Background()))
	})
}

func TestFromContextOrDefault(t *testing.T) {
	t.Parallel()

	_, fallback := logger.SetupTestLogger(t, nil)

	t.Run("prefers context logger", func(t *testing.T) {
		t.Parallel()

		_, stored := logger.SetupTestLogger(t, nil)
		ctx := logger.WithLogger(context.Background(), stored)
		assert.Same(t, stored, logger.FromContextOrDefault(ctx, fallback))
	})

	t.Run("uses fallback when context is empty", func(t *testing.T) {
		t.Parallel()

		assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	})

	t.Run("uses default when both missing", func(t *testing.T) {
		t.Parallel()

		assert.Same(t, slog.Default(), logger.FromContextOrDefault(context.Background(), nil))
	})
}

func TestLoggerOutputIsStructured(t *testing.T) {
	t.Parallel()

	buf, log := logger.SetupTestLogger(t, nil)
	log.Info("task admitted", "task_id", "u1:abc", "user_id", "u1")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "task admitted", entries[0]["msg"])
	assert.Equal(t, "u1:abc", entries[0]["task_id"])
	assert.Equal(t, "u1", entries[0]["user_id"])
}
