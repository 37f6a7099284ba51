package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal verifies that a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithFields_CarriesFields checks that context helpers decorate the stored logger.
func TestWithFields_CarriesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "beacond")
	ctx = WithKV(ctx, "beacon", "adb")
	ctx = WithFields(ctx, "kind", "adb", "interval", "10s")

	InfoKV(ctx, "Tick finished", "events", 2)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "beacond", entries[0].LoggerName)
	require.Equal(t, "Tick finished", entries[0].Message)

	fields := entries[0].ContextMap()
	require.Equal(t, "adb", fields["beacon"])
	require.Equal(t, "10s", fields["interval"])
	require.Equal(t, int64(2), fields["events"])
}
