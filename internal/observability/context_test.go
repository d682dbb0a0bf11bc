package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDContext(t *testing.T) {
	t.Run("stores and retrieves request ID", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithRequestID(ctx, "req-123")

		result := RequestIDFromContext(ctx)
		assert.Equal(t, "req-123", result)
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		ctx := context.Background()
		result := RequestIDFromContext(ctx)
		assert.Equal(t, "", result)
	})
}

func TestWorkflowContext(t *testing.T) {
	t.Run("stores and retrieves workflow and run IDs", func(t *testing.T) {
		ctx := WithWorkflow(context.Background(), "search-abc", "run-1")

		wfID, runID := WorkflowFromContext(ctx)
		assert.Equal(t, "search-abc", wfID)
		assert.Equal(t, "run-1", runID)
	})

	t.Run("returns empty strings when not set", func(t *testing.T) {
		wfID, runID := WorkflowFromContext(context.Background())
		assert.Empty(t, wfID)
		assert.Empty(t, runID)
	})
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithRequestID(context.Background(), "first")
	ctx = WithRequestID(ctx, "second")

	assert.Equal(t, "second", RequestIDFromContext(ctx))
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithRequestID(context.Background(), "req-9")
	ctx = WithWorkflow(ctx, "wf-9", "run-9")

	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("handled")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))

	assert.Equal(t, "req-9", logEntry["request_id"])
	assert.Equal(t, "wf-9", logEntry["workflow_id"])
	assert.Equal(t, "run-9", logEntry["workflow_run_id"])
}

func TestLoggerFromContext_Empty(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggerFromContext(context.Background(), zerolog.New(&buf))
	logger.Info().Msg("plain")

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))

	_, hasRequest := logEntry["request_id"]
	assert.False(t, hasRequest)
}
