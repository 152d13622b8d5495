package observability

import (
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/logger"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/metrics"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module provides the zap logger, the OTLP trace and metric providers, and
// the service counters used by the quota, document and opname services.
var Module = fx.Module("observability",
	fx.Provide(
		FromAppConfig,
		Config.LoggerConfig,
		Config.TracingConfig,
		Config.MetricsConfig,
		logger.New,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.LedgerWithConfig,
	),
	// Nothing else depends on the tracer provider; force its construction.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
