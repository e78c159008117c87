package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func disabledLogsConfig() LogsConfig {
	return LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "ledger-backend",
		Insecure:          true,
	}
}

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewLoggerProvider(ctx, disabledLogsConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, provider)

	assert.False(t, provider.IsEnabled())
	assert.Nil(t, provider.GetLoggerProvider())

	// lifecycle calls must be safe without an underlying provider
	assert.NoError(t, provider.Shutdown(ctx))
	assert.NoError(t, provider.ForceFlush(ctx))
}

func TestLoggerProvider_GetConfig(t *testing.T) {
	cfg := disabledLogsConfig()

	provider, err := NewLoggerProvider(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, cfg, provider.GetConfig())
}

func TestNewZapOTELCore_Disabled(t *testing.T) {
	t.Run("nil provider", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName: "ledger-backend",
			Level:       zapcore.InfoLevel,
		})
		require.NotNil(t, core)
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
	})

	t.Run("disabled provider", func(t *testing.T) {
		provider, err := NewLoggerProvider(context.Background(), disabledLogsConfig(), zap.NewNop())
		require.NoError(t, err)

		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "ledger-backend",
			LoggerProvider: provider,
			Level:          zapcore.InfoLevel,
		})
		require.NotNil(t, core)
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
	})
}

func TestLevelFilterCore_Enabled(t *testing.T) {
	inner, _ := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.DebugLevel))
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestLevelFilterCore_Check(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	logger := zap.New(core)

	logger.Info("milestone evaluation scheduled")
	logger.Warn("redemption retries exhausted")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "redemption retries exhausted", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
}

func TestLevelFilterCore_With(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.InfoLevel}

	child := core.With([]zapcore.Field{zap.String("tenant_id", "tenant-travelco")})

	// the wrapper must survive With so filtering still applies
	filtered, ok := child.(*levelFilterCore)
	require.True(t, ok)
	assert.Equal(t, zapcore.InfoLevel, filtered.minLevel)

	zap.New(child).Info("wallet debited")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Len(t, entries[0].Context, 1)
	assert.Equal(t, "tenant_id", entries[0].Context[0].Key)
	assert.Equal(t, "tenant-travelco", entries[0].Context[0].String)
}
