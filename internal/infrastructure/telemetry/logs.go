package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logShutdownTimeout = 10 * time.Second

// redactedValue replaces credential fields in exported log records
const redactedValue = "[redacted]"

// DefaultRedactedFields are field keys that never leave the process through
// the log exporter. Provider tokens and consent codes live under these names.
var DefaultRedactedFields = []string{
	"access_token",
	"refresh_token",
	"client_secret",
	"authorization",
	"code",
	"state",
}

// LoggerProvider owns the OTLP log pipeline. A disabled provider exports nothing.
type LoggerProvider struct {
	sdk    *sdklog.LoggerProvider
	logger *zap.Logger
}

// NewLoggerProvider builds a batching OTLP/gRPC log pipeline and installs it
// globally. When telemetry is off the returned provider is inert.
func NewLoggerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{logger: logger}
	if !cfg.Enabled {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	lp.sdk = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.sdk)

	logger.Info("Log export enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.String("service_name", cfg.ServiceName),
	)
	return lp, nil
}

// IsEnabled reports whether records are exported.
func (lp *LoggerProvider) IsEnabled() bool {
	return lp != nil && lp.sdk != nil
}

// ForceFlush exports buffered records.
func (lp *LoggerProvider) ForceFlush(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	return lp.sdk.ForceFlush(ctx)
}

// Shutdown flushes and stops the pipeline, bounded by logShutdownTimeout.
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, logShutdownTimeout)
	defer cancel()

	if err := lp.sdk.Shutdown(ctx); err != nil {
		lp.logger.Error("Log exporter shutdown failed", zap.Error(err))
		return fmt.Errorf("failed to shutdown logger provider: %w", err)
	}
	return nil
}

// ZapBridgeConfig configures the zap core that feeds the log exporter.
type ZapBridgeConfig struct {
	ServiceName    string
	LoggerProvider *LoggerProvider
	// Level is the lowest level exported
	Level zapcore.Level
	// RedactFields overrides DefaultRedactedFields when non-nil
	RedactFields []string
}

// NewZapOTELCore returns a core to tee next to the console core so entries
// reach the collector too. Credential fields are masked before export.
func NewZapOTELCore(cfg ZapBridgeConfig) zapcore.Core {
	if !cfg.LoggerProvider.IsEnabled() {
		return zapcore.NewNopCore()
	}

	redact := cfg.RedactFields
	if redact == nil {
		redact = DefaultRedactedFields
	}
	return newExportCore(
		otelzap.NewCore(cfg.ServiceName, otelzap.WithLoggerProvider(cfg.LoggerProvider.sdk)),
		cfg.Level,
		redact,
	)
}

// exportCore enforces a minimum level (otelzap has none) and masks fields
// whose key is in the redaction set.
type exportCore struct {
	zapcore.Core
	min    zapcore.Level
	redact map[string]struct{}
}

func newExportCore(inner zapcore.Core, min zapcore.Level, redact []string) *exportCore {
	set := make(map[string]struct{}, len(redact))
	for _, k := range redact {
		set[strings.ToLower(k)] = struct{}{}
	}
	return &exportCore{Core: inner, min: min, redact: set}
}

func (c *exportCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && c.Core.Enabled(lvl)
}

func (c *exportCore) With(fields []zapcore.Field) zapcore.Core {
	return &exportCore{Core: c.Core.With(c.mask(fields)), min: c.min, redact: c.redact}
}

func (c *exportCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *exportCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(entry, c.mask(fields))
}

func (c *exportCore) mask(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if _, ok := c.redact[strings.ToLower(f.Key)]; !ok {
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, len(fields))
			copy(out, fields)
		}
		out[i] = zap.String(f.Key, redactedValue)
	}
	if out == nil {
		return fields
	}
	return out
}
