package observability

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreGlobals undoes the package-level zerolog settings NewLogger changes.
func restoreGlobals(t *testing.T) {
	level, timeFormat := zerolog.GlobalLevel(), zerolog.TimeFieldFormat
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = timeFormat
	})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDefaultLoggingConfig(t *testing.T) {
	cfg := DefaultLoggingConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.Equal(t, time.RFC3339, cfg.TimeFormat)
	assert.False(t, cfg.AddSource)
}

func TestNewLogger_JSON(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	logger := newLogger(DefaultLoggingConfig(), &buf)
	logger.Info().Str("query", "temporal").Msg("search started")

	entry := decodeLine(t, &buf)
	assert.Equal(t, ServiceName, entry["service"])
	assert.Equal(t, "search started", entry["message"])
	assert.Equal(t, "temporal", entry["query"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_LevelFilters(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	logger := newLogger(LoggingConfig{Level: "warn", Format: FormatJSON}, &buf)
	logger.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	assert.Equal(t, "kept", decodeLine(t, &buf)["message"])
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestNewLogger_AddSource(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	logger := newLogger(LoggingConfig{Level: "info", AddSource: true}, &buf)
	logger.Info().Msg("with caller")

	assert.Contains(t, decodeLine(t, &buf), "caller")
}

func TestNewLogger_Console(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	logger := newLogger(LoggingConfig{Level: "info", Format: FormatConsole}, &buf)
	logger.Info().Msg("human readable")

	assert.Contains(t, buf.String(), "human readable")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestOutputWriter(t *testing.T) {
	assert.NotNil(t, outputWriter("stderr"))
	assert.NotNil(t, outputWriter("STDOUT"))
	assert.NotNil(t, outputWriter(""))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"WARNING", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"disabled", zerolog.InfoLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestWithSessionContext(t *testing.T) {
	var buf bytes.Buffer

	logger := WithSessionContext(zerolog.New(&buf), "sess-123", "k3j9x2")
	logger.Info().Msg("session attached")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "sess-123", entry["session_id"])
	assert.Equal(t, "k3j9x2", entry["attempt_id"])
}

func TestWithWorkflowContext(t *testing.T) {
	t.Run("with run ID", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithWorkflowContext(zerolog.New(&buf), "wf-123", "run-456")
		logger.Info().Msg("step")

		entry := decodeLine(t, &buf)
		assert.Equal(t, "wf-123", entry["workflow_id"])
		assert.Equal(t, "run-456", entry["workflow_run_id"])
	})

	t.Run("without run ID", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithWorkflowContext(zerolog.New(&buf), "wf-123", "")
		logger.Info().Msg("step")

		entry := decodeLine(t, &buf)
		assert.Equal(t, "wf-123", entry["workflow_id"])
		assert.NotContains(t, entry, "workflow_run_id")
	})
}
