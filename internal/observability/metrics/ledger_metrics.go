package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonDeadlock             = "deadlock"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonNotFound             = "not_found"
	ReasonUnknown              = "unknown"
)

// Drift sources for IncDrift.
const (
	DriftQuotaReleaseClamped = "quota_release_clamped"
	DriftQuotaReconciled     = "quota_reconciled"
)

const (
	LockResourceQuota       = "division_storage_quotas"
	LockResourceStockOpname = "stock_opnames"
	LockResourceItem        = "items"
	LockResourceDocument    = "documents"
)

// LedgerMetrics tracks row-lock contention and failures of the ledger transactions.
type LedgerMetrics struct {
	lockWait         *prometheus.HistogramVec
	operationErrors  *prometheus.CounterVec
	drift            *prometheus.CounterVec
	lockWaitObserver map[string]prometheus.Observer
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics registered on the default registerer.
func Ledger() *LedgerMetrics {
	return LedgerWithConfig(Config{})
}

func LedgerWithConfig(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = NewLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

// NewLedgerMetrics registers the ledger collectors on registerer.
func NewLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "eoffice"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "eoffice_db_lock_wait_seconds",
		Help:        "Time spent acquiring row locks for ledger mutations.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"resource"})
	operationErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "eoffice_ledger_operation_errors_total",
		Help:        "Ledger operation failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})

	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "eoffice_ledger_drift_total",
		Help:        "Balances found out of step with their allocations or transactions.",
		ConstLabels: constLabels,
	}, []string{"source"})

	registerer.MustRegister(lockWait, operationErrors, drift)

	observers := map[string]prometheus.Observer{}
	for _, resource := range []string{
		LockResourceQuota,
		LockResourceStockOpname,
		LockResourceItem,
		LockResourceDocument,
	} {
		observers[resource] = lockWait.WithLabelValues(resource)
	}

	return &LedgerMetrics{
		lockWait:         lockWait,
		operationErrors:  operationErrors,
		drift:            drift,
		lockWaitObserver: observers,
	}
}

// ObserveLockWait records how long a SELECT ... FOR UPDATE took.
func (m *LedgerMetrics) ObserveLockWait(resource string, duration time.Duration) {
	if m == nil {
		return
	}
	if observer, ok := m.lockWaitObserver[resource]; ok {
		observer.Observe(duration.Seconds())
		return
	}
	m.lockWait.WithLabelValues(resource).Observe(duration.Seconds())
}

// IncOperationError counts infrastructure failures; business rejections carry their own reason.
func (m *LedgerMetrics) IncOperationError(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.operationErrors.WithLabelValues(operation, ClassifyReason(err)).Inc()
}

// IncDrift counts one balance found out of step with its ledger.
func (m *LedgerMetrics) IncDrift(source string) {
	if m == nil {
		return
	}
	m.drift.WithLabelValues(source).Inc()
}

// ClassifyReason maps errors to low-cardinality reasons.
func ClassifyReason(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ReasonNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || hasPGCode(err, "23505") {
		return ReasonUniqueViolation
	}
	switch {
	case hasPGCode(err, "55P03"):
		return ReasonDBLockTimeout
	case hasPGCode(err, "40P01"):
		return ReasonDeadlock
	case hasPGCode(err, "40001"):
		return ReasonSerializationFailure
	}
	return ReasonUnknown
}

// IsRetryable reports whether the failure is transient contention.
func IsRetryable(err error) bool {
	switch ClassifyReason(err) {
	case ReasonDBLockTimeout, ReasonDeadlock, ReasonSerializationFailure:
		return true
	default:
		return false
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
