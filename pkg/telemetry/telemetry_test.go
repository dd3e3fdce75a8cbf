package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init("shovel-test", false, "")
	require.NoError(t, err)

	_, span := Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_EnabledWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "telemetry.jsonl")
	shutdown, err := Init("shovel-test", true, path)
	require.NoError(t, err)

	_, span := Start(context.Background(), "start", attribute.String("mode", "C"))
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Name":"start"`)
	assert.Contains(t, string(data), "shovel-test")

	// restore the no-op tracer for other tests
	_, err = Init("shovel-test", false, "")
	require.NoError(t, err)
}

func TestTruncateArgs(t *testing.T) {
	assert.Equal(t, "start --mode-c", TruncateArgs([]string{"start", "--mode-c"}))
	long := TruncateArgs([]string{strings.Repeat("x", 300)})
	assert.Len(t, long, 259)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestStart_NilContext(t *testing.T) {
	//nolint:staticcheck // exercising the nil guard
	ctx, span := Start(nil, "nil-ctx")
	defer span.End()
	assert.NotNil(t, ctx)
}
