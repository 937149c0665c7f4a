package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")

	ctx := WithRunID(context.Background(), "run-1")
	FromContext(ctx).Debug("mapped", "feature_id", "f1")

	var record map[string]any
	require.NoError(t, gojson.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "mapped", record["msg"])
	assert.Equal(t, "run-1", record["run_id"])
	assert.Equal(t, "f1", record["feature_id"])
}

func TestSetupWriterLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	SetupWriter(&buf, "warn", "text")
	WithComponent("mapper").Info("hidden")
	assert.Empty(t, buf.String())

	WithComponent("mapper").Warn("shown")
	assert.Contains(t, buf.String(), "component=mapper")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("anything"))
}
