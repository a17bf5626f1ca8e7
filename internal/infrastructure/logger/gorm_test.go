package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*GormLogger)(nil)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func credentialQuery(rows int64) func() (string, int64) {
	return func() (string, int64) {
		return `UPDATE "traffic_connections" SET "access_token"=$1 WHERE merchant_id = $2 AND token_version = $3`, rows
	}
}

func TestNewGormLogger_Options(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Warn,
		WithSlowThreshold(time.Second),
		WithIgnoreRecordNotFoundError(false),
		WithSQL(true),
	)

	assert.Equal(t, gormlogger.Warn, gormLog.logLevel)
	assert.Equal(t, time.Second, gormLog.slowThreshold)
	assert.False(t, gormLog.ignoreRecordNotFoundError)
	assert.True(t, gormLog.logSQL)

	defaults, _ := newObservedGormLogger(gormlogger.Info)
	assert.Equal(t, 200*time.Millisecond, defaults.slowThreshold)
	assert.True(t, defaults.ignoreRecordNotFoundError)
	assert.False(t, defaults.logSQL)
}

func TestGormLogger_LogModeCopies(t *testing.T) {
	gormLog, _ := newObservedGormLogger(gormlogger.Info)

	quiet, ok := gormLog.LogMode(gormlogger.Error).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Error, quiet.logLevel)
	assert.Equal(t, gormlogger.Info, gormLog.logLevel)
}

func TestGormLogger_Messages(t *testing.T) {
	tests := []struct {
		name  string
		level gormlogger.LogLevel
		log   func(l *GormLogger)
		want  zapcore.Level
		msg   string
	}{
		{
			name:  "info",
			level: gormlogger.Info,
			log:   func(l *GormLogger) { l.Info(context.Background(), "migrated %d tables", 2) },
			want:  zapcore.InfoLevel,
			msg:   "migrated 2 tables",
		},
		{
			name:  "warn",
			level: gormlogger.Warn,
			log:   func(l *GormLogger) { l.Warn(context.Background(), "pool at %d%%", 90) },
			want:  zapcore.WarnLevel,
			msg:   "pool at 90%",
		},
		{
			name:  "error",
			level: gormlogger.Error,
			log:   func(l *GormLogger) { l.Error(context.Background(), "lost connection") },
			want:  zapcore.ErrorLevel,
			msg:   "lost connection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormLog, recorded := newObservedGormLogger(tt.level)
			tt.log(gormLog)

			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.want, logs[0].Level)
			assert.Equal(t, tt.msg, logs[0].Message)
		})
	}

	t.Run("silent suppresses everything", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Silent)
		gormLog.Info(context.Background(), "x")
		gormLog.Warn(context.Background(), "x")
		gormLog.Error(context.Background(), "x")
		gormLog.Trace(context.Background(), time.Now(), credentialQuery(1), errors.New("boom"))
		assert.Empty(t, recorded.All())
	})
}

func TestGormLogger_Trace(t *testing.T) {
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		opts      []GormLoggerOption
		elapsed   time.Duration
		err       error
		wantLevel zapcore.Level
		wantMsg   string
		wantNone  bool
	}{
		{
			name:      "query error",
			level:     gormlogger.Error,
			err:       errors.New("deadlock detected"),
			wantLevel: zapcore.ErrorLevel,
			wantMsg:   "query failed",
		},
		{
			name:     "record not found ignored",
			level:    gormlogger.Error,
			err:      gormlogger.ErrRecordNotFound,
			wantNone: true,
		},
		{
			name:      "record not found reported when configured",
			level:     gormlogger.Error,
			opts:      []GormLoggerOption{WithIgnoreRecordNotFoundError(false)},
			err:       gormlogger.ErrRecordNotFound,
			wantLevel: zapcore.ErrorLevel,
			wantMsg:   "query failed",
		},
		{
			name:      "slow query",
			level:     gormlogger.Warn,
			opts:      []GormLoggerOption{WithSlowThreshold(10 * time.Millisecond)},
			elapsed:   50 * time.Millisecond,
			wantLevel: zapcore.WarnLevel,
			wantMsg:   "slow query >= 10ms",
		},
		{
			name:     "fast query below info",
			level:    gormlogger.Warn,
			wantNone: true,
		},
		{
			name:      "fast query at info",
			level:     gormlogger.Info,
			wantLevel: zapcore.DebugLevel,
			wantMsg:   "query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gormLog, recorded := newObservedGormLogger(tt.level, tt.opts...)
			gormLog.Trace(context.Background(), time.Now().Add(-tt.elapsed), credentialQuery(1), tt.err)

			logs := recorded.All()
			if tt.wantNone {
				assert.Empty(t, logs)
				return
			}
			require.Len(t, logs, 1)
			assert.Equal(t, tt.wantLevel, logs[0].Level)
			assert.Equal(t, tt.wantMsg, logs[0].Message)
		})
	}
}

func TestGormLogger_TraceFields(t *testing.T) {
	t.Run("request and merchant ids without statement text", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Info)
		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-1")
		ctx, _ = WithMerchantID(ctx, zap.NewNop(), "merchant-7")

		gormLog.Trace(ctx, time.Now(), credentialQuery(1), nil)

		logs := recorded.All()
		require.Len(t, logs, 1)
		requestID, _ := fieldValue(logs[0], "request_id")
		merchantID, _ := fieldValue(logs[0], "merchant_id")
		assert.Equal(t, "req-1", requestID)
		assert.Equal(t, "merchant-7", merchantID)
		_, hasSQL := fieldValue(logs[0], "sql")
		assert.False(t, hasSQL)
	})

	t.Run("statement text when enabled", func(t *testing.T) {
		gormLog, recorded := newObservedGormLogger(gormlogger.Info, WithSQL(true))

		gormLog.Trace(context.Background(), time.Now(), credentialQuery(1), nil)

		sql, ok := fieldValue(recorded.All()[0], "sql")
		require.True(t, ok)
		assert.Contains(t, sql, "traffic_connections")
	})
}

func TestMapGormLogLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"verbose": gormlogger.Warn,
		"":        gormlogger.Warn,
	}

	for level, want := range tests {
		assert.Equal(t, want, MapGormLogLevel(level), "level %q", level)
	}
}
