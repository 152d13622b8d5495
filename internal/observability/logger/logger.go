package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	obscontext "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the zap logger.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string
	Debug       bool

	// Sampling applies to debug and info entries only. Warnings carry quota
	// drift, ledger mismatches and orphaned blobs and are always written.
	SamplingInitial     int
	SamplingThereafter  int
	SamplingWindow      time.Duration
	IncludeCaller       bool
	IncludeStackOnError bool
}

func (c Config) sampling() (initial, thereafter int, window time.Duration) {
	initial, thereafter, window = c.SamplingInitial, c.SamplingThereafter, c.SamplingWindow
	if initial <= 0 {
		initial = 100
	}
	if thereafter <= 0 {
		thereafter = 100
	}
	if window <= 0 {
		window = time.Second
	}
	return initial, thereafter, window
}

// New builds the process logger, installs it as the zap global and syncs it on stop.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	level := strings.TrimSpace(cfg.Level)
	if level == "" {
		level = "info"
	}
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = atomic
	zapCfg.Encoding = "json"
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	// Replaced by sampleBelowWarn.
	zapCfg.Sampling = nil

	initial, thereafter, window := cfg.sampling()
	options := []zap.Option{
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return sampleBelowWarn(core, initial, thereafter, window)
		}),
	}
	if cfg.IncludeCaller {
		options = append(options, zap.AddCaller())
	}
	if cfg.IncludeStackOnError {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	log, err := zapCfg.Build(options...)
	if err != nil {
		return nil, err
	}

	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "eoffice"
	}
	log = log.With(
		zap.String("service", service),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(log)

	if lc != nil {
		lc.Append(fx.StopHook(func() {
			_ = log.Sync()
		}))
	}
	return log, nil
}

// sampleBelowWarn samples debug and info entries and passes warnings and
// errors through untouched.
func sampleBelowWarn(core zapcore.Core, initial, thereafter int, window time.Duration) zapcore.Core {
	quiet := levelRangeCore{Core: core, min: zapcore.DebugLevel, max: zapcore.WarnLevel}
	loud := levelRangeCore{Core: core, min: zapcore.WarnLevel, max: zapcore.InvalidLevel}
	return zapcore.NewTee(
		zapcore.NewSamplerWithOptions(quiet, window, initial, thereafter),
		loud,
	)
}

// levelRangeCore admits entries with min <= level < max.
type levelRangeCore struct {
	zapcore.Core
	min, max zapcore.Level
}

func (c levelRangeCore) Enabled(level zapcore.Level) bool {
	return level >= c.min && level < c.max && c.Core.Enabled(level)
}

func (c levelRangeCore) With(fields []zapcore.Field) zapcore.Core {
	return levelRangeCore{Core: c.Core.With(fields), min: c.min, max: c.max}
}

func (c levelRangeCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// FromContext returns the global logger with request fields attached.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext attaches the request id, the acting user and the trace ids
// present in ctx. Absent values are omitted rather than logged empty.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}

	var fields []zap.Field
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID, role, divisionID := obscontext.ActorFields(ctx); userID != "" {
		fields = append(fields, zap.String("user_id", userID), zap.String("role", role))
		if divisionID != "" {
			fields = append(fields, zap.String("division_id", divisionID))
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// WithDivision scopes a logger to one division's quota or inventory.
func WithDivision(log *zap.Logger, divisionID int64) *zap.Logger {
	if log == nil {
		return nil
	}
	return log.With(zap.Int64("division_id", divisionID))
}
