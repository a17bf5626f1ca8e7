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

func TestNewLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(context.Background()))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestNewZapOTELCore_DisabledProviderIsNop(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	for _, provider := range []*LoggerProvider{nil, lp} {
		core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "storepulse", LoggerProvider: provider, Level: zapcore.InfoLevel})
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
	}
}

func TestNewZapOTELCore_EnabledProvider(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "storepulse-test",
		Insecure:          true,
	}, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = lp.Shutdown(context.Background()) }()

	core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "storepulse", LoggerProvider: lp, Level: zapcore.WarnLevel})
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestExportCore_LevelAndRedaction(t *testing.T) {
	inner, recorded := observer.New(zapcore.DebugLevel)
	core := newExportCore(inner, zapcore.WarnLevel, DefaultRedactedFields)

	l := zap.New(core).With(zap.String("merchant_id", "m-1"), zap.String("Refresh_Token", "1//secret"))
	l.Info("dropped", zap.String("access_token", "ya29.x"))
	l.Warn("token refresh failed", zap.String("access_token", "ya29.x"), zap.String("provider", "ga4"))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "token refresh failed", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "m-1", fields["merchant_id"])
	assert.Equal(t, "ga4", fields["provider"])
	assert.Equal(t, redactedValue, fields["access_token"])
	assert.Equal(t, redactedValue, fields["Refresh_Token"])
}

func TestExportCore_MaskLeavesCallerFieldsIntact(t *testing.T) {
	core := newExportCore(zapcore.NewNopCore(), zapcore.DebugLevel, []string{"code"})
	fields := []zapcore.Field{zap.String("code", "4/abc"), zap.Int("attempt", 1)}

	masked := core.mask(fields)

	assert.Equal(t, redactedValue, masked[0].String)
	assert.Equal(t, "4/abc", fields[0].String)
	assert.Equal(t, int64(1), masked[1].Integer)

	clean := []zapcore.Field{zap.Int("attempt", 2)}
	assert.Equal(t, clean, core.mask(clean))
}
