package observe

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a production JSON logger at the named level
// ("debug", "info", "warn", "error"). An empty level means info.
func NewLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ZapSink writes stage events as structured log records.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink returns a sink backed by logger. A nil logger discards output.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

func (z *ZapSink) StageStart(id, stage string, fields Fields) {
	z.logger.Info("Stage started", append(base(id, stage, EventStageStart), expand(fields)...)...)
}

func (z *ZapSink) StageComplete(id, stage string, d time.Duration, metrics Fields) {
	zf := append(base(id, stage, EventStageComplete), zap.Float64("duration_seconds", d.Seconds()))
	z.logger.Info("Stage completed", append(zf, expand(metrics)...)...)
}

func (z *ZapSink) StageError(id, stage, message string) {
	z.logger.Error("Stage failed", append(base(id, stage, EventStageError), zap.String("error", message))...)
}

func (z *ZapSink) Warn(id, message string) {
	z.logger.Warn(message, zap.String("correlation_id", id), zap.String("event", EventWarning))
}

func base(id, stage, event string) []zap.Field {
	return []zap.Field{
		zap.String("correlation_id", id),
		zap.String("stage", stage),
		zap.String("event", event),
	}
}

// expand turns fields into zap fields in key order so records are stable.
func expand(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
