package logging_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"consultetl/internal/config"
	"consultetl/internal/logging"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, logging.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, logging.ParseLevel("warn"))
	require.Equal(t, slog.LevelError, logging.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, logging.ParseLevel(""))
}

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logging.New(&buf, config.Log{Level: "info", Format: "json"}).Info("hello", "k", 1)
		require.Contains(t, buf.String(), `"msg":"hello"`)
	})

	t.Run("text drops below level", func(t *testing.T) {
		var buf bytes.Buffer
		l := logging.New(&buf, config.Log{Level: "warn", Format: "text"})
		l.Info("quiet")
		l.Warn("loud")
		require.NotContains(t, buf.String(), "quiet")
		require.Contains(t, buf.String(), "msg=loud")
	})
}
