package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedConnection struct {
	ID         uint   `gorm:"primaryKey"`
	ShopDomain string `gorm:"size:255"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedConnection{}))
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.True(t, cfg.WithoutVariables)
}

func TestDBSystemFor(t *testing.T) {
	assert.Equal(t, "sqlite", DBSystemFor("sqlite"))
	assert.Equal(t, "postgresql", DBSystemFor("postgres"))
	assert.Equal(t, "postgresql", DBSystemFor(""))
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db := setupTestDB(t)

	err := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop()).RegisterOtelGorm(db)
	assert.NoError(t, err)
}

func TestDBTracingPlugin_DoubleRegistrationFails(t *testing.T) {
	db := setupTestDB(t)
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	require.NoError(t, plugin.RegisterOtelGorm(db))
	assert.Error(t, plugin.RegisterOtelGorm(db))
}

func TestDBTracingPlugin_EmitsQuerySpans(t *testing.T) {
	recorder := useRecorder(t)
	db := setupTestDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true
	cfg.DBSystem = "sqlite"
	require.NoError(t, NewDBTracingPlugin(cfg, zap.NewNop()).RegisterOtelGorm(db))

	ctx, parent := StartSpan(context.Background(), "credential_store.upsert")
	require.NoError(t, db.WithContext(ctx).Create(&tracedConnection{ShopDomain: "demo.myshopify.com"}).Error)
	parent.End()

	spans := recorder.Ended()
	require.GreaterOrEqual(t, len(spans), 2)
	for _, s := range spans {
		assert.Equal(t, parent.SpanContext().TraceID(), s.SpanContext().TraceID())
	}
}
