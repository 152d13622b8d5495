// Package scheduler runs periodic ledger maintenance: storage quota
// reconciliation and item stock verification.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/clock"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	obscontext "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/context"
	obslogger "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/logger"
	obsmetrics "github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/metrics"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log           *zap.Logger
	Quota         quotadomain.Service
	Inventory     inventorydomain.Service
	Clock         clock.Clock
	Config        Config                    `optional:"true"`
	LedgerMetrics *obsmetrics.LedgerMetrics `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	clock         clock.Clock
	quotaSvc      quotadomain.Service
	inventorySvc  inventorydomain.Service
	ledgerMetrics *obsmetrics.LedgerMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Quota == nil || p.Inventory == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		clock:         p.Clock,
		quotaSvc:      p.Quota,
		inventorySvc:  p.Inventory,
		ledgerMetrics: p.LedgerMetrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, runID := obscontext.EnsureRequestID(ctx)
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("job", name),
		zap.String("run_id", runID),
	)
	log.Debug("job started")

	err := fn(ctx)
	log = log.With(zap.Duration("duration", s.clock.Now().Sub(start)))
	if err == nil {
		log.Info("job finished")
		return nil
	}

	// Deadline is a soft timeout; the next tick retries.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	s.ledgerMetrics.IncOperationError("scheduler."+name, err)
	log.Error("job failed", zap.Error(err))
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job and joins their failures.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobQuotaReconcile, s.QuotaReconcileJob},
		{JobStockVerify, s.StockVerifyJob},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// QuotaReconcileJob recomputes every division's used size from its allocations.
func (s *Scheduler) QuotaReconcileJob(ctx context.Context) error {
	results, err := s.quotaSvc.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	log := obslogger.WithContext(ctx, s.log)
	drifted := 0
	for _, result := range results {
		if !result.Drifted() {
			continue
		}
		drifted++
		log.Warn("storage quota drift corrected",
			zap.Int64("division_id", result.DivisionID),
			zap.Int64("before", result.Before),
			zap.Int64("after", result.After),
		)
	}
	log.Info("storage quotas reconciled",
		zap.Int("divisions", len(results)),
		zap.Int("drifted", drifted),
	)
	return nil
}

// StockVerifyJob reports items whose stock disagrees with their transaction ledger.
func (s *Scheduler) StockVerifyJob(ctx context.Context) error {
	checks, err := s.inventorySvc.VerifyAll(ctx)
	if err != nil {
		return err
	}
	log := obslogger.WithContext(ctx, s.log)
	inconsistent := 0
	for _, check := range checks {
		if check.Consistent() {
			continue
		}
		inconsistent++
		log.Error("item stock does not match ledger",
			zap.Int64("item_id", check.ItemID),
			zap.String("code", check.Code),
			zap.Int64("stock", check.Stock),
			zap.Int64("ledger_sum", check.LedgerSum),
		)
	}
	log.Info("item stock verified",
		zap.Int("items", len(checks)),
		zap.Int("inconsistent", inconsistent),
	)
	return nil
}
