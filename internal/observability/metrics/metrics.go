package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	quotaDecisions     metric.Int64Counter
	quotaBytes         metric.Int64Counter
	documentOperations metric.Int64Counter
	stockAdjustments   metric.Int64Counter
	opnameTransitions  metric.Int64Counter
	blobCompensations  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "eoffice"
	}
	meter := provider.Meter(name)

	quotaDecisions, err := meter.Int64Counter("eoffice_quota_decisions_total")
	if err != nil {
		return nil, err
	}
	quotaBytes, err := meter.Int64Counter("eoffice_quota_bytes_total", metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	documentOperations, err := meter.Int64Counter("eoffice_document_operations_total")
	if err != nil {
		return nil, err
	}
	stockAdjustments, err := meter.Int64Counter("eoffice_stock_adjustments_total")
	if err != nil {
		return nil, err
	}
	opnameTransitions, err := meter.Int64Counter("eoffice_stock_opname_transitions_total")
	if err != nil {
		return nil, err
	}
	blobCompensations, err := meter.Int64Counter("eoffice_blob_compensations_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		quotaDecisions:     quotaDecisions,
		quotaBytes:         quotaBytes,
		documentOperations: documentOperations,
		stockAdjustments:   stockAdjustments,
		opnameTransitions:  opnameTransitions,
		blobCompensations:  blobCompensations,
	}, nil
}

// NewNoop returns instruments bound to a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordQuotaDecision counts reserve, release and reject outcomes with their byte volume.
func (m *Metrics) RecordQuotaDecision(ctx context.Context, outcome string, bytes int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.quotaDecisions.Add(ctx, 1, metric.WithAttributes(attrs...))
	if bytes > 0 {
		m.quotaBytes.Add(ctx, bytes, metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) RecordDocumentOperation(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("operation", strings.TrimSpace(operation)))
	m.documentOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStockAdjustment counts appended item transactions by reference type.
func (m *Metrics) RecordStockAdjustment(ctx context.Context, referenceType string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("reference_type", strings.TrimSpace(referenceType)))
	m.stockAdjustments.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordOpnameTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
	)
	m.opnameTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBlobCompensation counts orphaned blob cleanups by outcome.
func (m *Metrics) RecordBlobCompensation(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.blobCompensations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":        {},
	"operation":      {},
	"reference_type": {},
	"from":           {},
	"to":             {},
	"route":          {},
	"method":         {},
	"status_code":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
