package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/logger"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/metrics"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/bytesize"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Repo          domain.Repository
	Metrics       *metrics.Metrics       `optional:"true"`
	LedgerMetrics *metrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	repo          domain.Repository
	metrics       *metrics.Metrics
	ledgerMetrics *metrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("quota.service"),
		repo:          p.Repo,
		metrics:       p.Metrics,
		ledgerMetrics: p.LedgerMetrics,
	}
}

func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, divisionIDs []int64, totalBytes int64) (domain.Allocation, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if totalBytes < 0 {
		return nil, domain.ErrInvalidSize
	}
	ids, err := normalizeDivisionIDs(divisionIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return domain.Allocation{}, nil
	}

	allocation, err := s.reserve(ctx, tx, ids, totalBytes)
	if err != nil {
		var exceeded *domain.ExceededError
		if errors.As(err, &exceeded) {
			s.metrics.RecordQuotaDecision(ctx, "rejected", totalBytes)
			logger.WithDivision(s.log, exceeded.DivisionID).Info("storage quota rejected reservation",
				zap.Int64("requested", exceeded.Requested),
				zap.Int64("remaining", exceeded.Remaining),
			)
		} else {
			s.ledgerMetrics.IncOperationError("quota.reserve", err)
		}
		return nil, err
	}

	s.metrics.RecordQuotaDecision(ctx, "reserved", allocation.Total())
	return allocation, nil
}

func (s *Service) reserve(ctx context.Context, tx *gorm.DB, ids []int64, totalBytes int64) (domain.Allocation, error) {
	share, _ := bytesize.Split(totalBytes, len(ids))

	rows, err := s.lock(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	// Every division is checked before any row is touched.
	for _, id := range ids {
		row, ok := rows[id]
		if !ok {
			continue
		}
		if !bytesize.Fits(row.UsedSize, share, row.MaxSize) {
			return nil, &domain.ExceededError{
				DivisionID: id,
				Requested:  share,
				Remaining:  max(row.MaxSize-row.UsedSize, 0),
			}
		}
	}

	now := time.Now().UTC()
	allocation := make(domain.Allocation, len(ids))
	for _, id := range ids {
		if share > 0 {
			if err := s.repo.AddUsed(ctx, tx, id, share, now); err != nil {
				return nil, fmt.Errorf("reserve division %d: %w", id, err)
			}
		}
		allocation[id] = share
	}
	return allocation, nil
}

func (s *Service) Release(ctx context.Context, tx *gorm.DB, allocation domain.Allocation) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if len(allocation) == 0 {
		return nil
	}

	ids := allocation.DivisionIDs()
	rows, err := s.lock(ctx, tx, ids)
	if err != nil {
		s.ledgerMetrics.IncOperationError("quota.release", err)
		return err
	}
	if err := s.release(ctx, tx, rows, allocation); err != nil {
		s.ledgerMetrics.IncOperationError("quota.release", err)
		return err
	}

	s.metrics.RecordQuotaDecision(ctx, "released", allocation.Total())
	return nil
}

// release subtracts allocation from the locked rows. used_size never goes
// below zero; a release larger than the balance means the ledger drifted and
// is reported before the clamp hides it.
func (s *Service) release(ctx context.Context, tx *gorm.DB, rows map[int64]domain.StorageQuota, allocation domain.Allocation) error {
	now := time.Now().UTC()
	for _, id := range allocation.DivisionIDs() {
		size := allocation[id]
		if size <= 0 {
			continue
		}
		if used := rows[id].UsedSize; used < size {
			s.ledgerMetrics.IncDrift(metrics.DriftQuotaReleaseClamped)
			logger.WithContext(ctx, logger.WithDivision(s.log, id)).Warn("storage quota release exceeds usage, clamping to zero",
				zap.Int64("used", used),
				zap.Int64("release", size),
				zap.Int64("drift", size-used),
			)
		}
		if err := s.repo.SubtractUsed(ctx, tx, id, size, now); err != nil {
			return fmt.Errorf("release division %d: %w", id, err)
		}
	}
	return nil
}

// Replace reverses previous and charges the new split in one transaction.
// Capacity is checked against the post-release values.
func (s *Service) Replace(ctx context.Context, tx *gorm.DB, previous domain.Allocation, divisionIDs []int64, totalBytes int64) (domain.Allocation, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	if totalBytes < 0 {
		return nil, domain.ErrInvalidSize
	}
	ids, err := normalizeDivisionIDs(divisionIDs)
	if err != nil {
		return nil, err
	}

	// Lock the union up front so both phases follow one ascending order.
	union := append(previous.DivisionIDs(), ids...)
	union, _ = normalizeDivisionIDs(union)
	rows, err := s.lock(ctx, tx, union)
	if err != nil {
		s.ledgerMetrics.IncOperationError("quota.replace", err)
		return nil, err
	}

	if err := s.release(ctx, tx, rows, previous); err != nil {
		s.ledgerMetrics.IncOperationError("quota.replace", err)
		return nil, err
	}
	if len(ids) == 0 {
		s.metrics.RecordQuotaDecision(ctx, "released", previous.Total())
		return domain.Allocation{}, nil
	}

	allocation, err := s.reserve(ctx, tx, ids, totalBytes)
	if err != nil {
		var exceeded *domain.ExceededError
		if errors.As(err, &exceeded) {
			s.metrics.RecordQuotaDecision(ctx, "rejected", totalBytes)
		} else {
			s.ledgerMetrics.IncOperationError("quota.replace", err)
		}
		return nil, err
	}

	s.metrics.RecordQuotaDecision(ctx, "released", previous.Total())
	s.metrics.RecordQuotaDecision(ctx, "reserved", allocation.Total())
	return allocation, nil
}

func (s *Service) SetMax(ctx context.Context, divisionID, maxSize int64) error {
	if divisionID <= 0 {
		return domain.ErrInvalidDivision
	}
	if maxSize < 0 {
		return domain.ErrInvalidMaxSize
	}
	if err := s.repo.UpsertMax(ctx, s.db, divisionID, maxSize, time.Now().UTC()); err != nil {
		return err
	}
	logger.WithDivision(s.log, divisionID).Info("storage quota updated", zap.String("max_size", bytesize.Format(maxSize)))
	return nil
}

func (s *Service) Usage(ctx context.Context, divisionID int64) (*domain.Usage, error) {
	if divisionID <= 0 {
		return nil, domain.ErrInvalidDivision
	}
	row, err := s.repo.FindByDivisionID(ctx, s.db, divisionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &domain.StorageQuota{DivisionID: divisionID}
	}
	usage := toUsage(*row)
	return &usage, nil
}

func (s *Service) ListUsage(ctx context.Context) ([]domain.Usage, error) {
	rows, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]domain.Usage, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toUsage(row))
	}
	return resp, nil
}

// Reconcile recomputes used_size from the persisted allocations.
func (s *Service) Reconcile(ctx context.Context, divisionID int64) (domain.ReconcileResult, error) {
	if divisionID <= 0 {
		return domain.ReconcileResult{}, domain.ErrInvalidDivision
	}

	result := domain.ReconcileResult{DivisionID: divisionID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.lock(ctx, tx, []int64{divisionID})
		if err != nil {
			return err
		}
		result.Before = rows[divisionID].UsedSize

		total, err := s.repo.SumAllocated(ctx, tx, divisionID)
		if err != nil {
			return err
		}
		result.After = total

		if !result.Drifted() {
			return nil
		}
		return s.repo.SetUsed(ctx, tx, divisionID, total, time.Now().UTC())
	})
	if err != nil {
		s.ledgerMetrics.IncOperationError("quota.reconcile", err)
		return domain.ReconcileResult{}, err
	}

	if result.Drifted() {
		s.ledgerMetrics.IncDrift(metrics.DriftQuotaReconciled)
		logger.WithDivision(s.log, divisionID).Warn("storage quota drift corrected",
			zap.Int64("before", result.Before),
			zap.Int64("after", result.After),
		)
	}
	return result, nil
}

func (s *Service) ReconcileAll(ctx context.Context) ([]domain.ReconcileResult, error) {
	rows, err := s.repo.FindAll(ctx, s.db)
	if err != nil {
		return nil, err
	}
	results := make([]domain.ReconcileResult, 0, len(rows))
	for _, row := range rows {
		result, err := s.Reconcile(ctx, row.DivisionID)
		if err != nil {
			return results, fmt.Errorf("reconcile division %d: %w", row.DivisionID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) lock(ctx context.Context, tx *gorm.DB, ids []int64) (map[int64]domain.StorageQuota, error) {
	start := time.Now()
	rows, err := s.repo.LockForUpdate(ctx, tx, ids)
	s.ledgerMetrics.ObserveLockWait(metrics.LockResourceQuota, time.Since(start))
	return rows, err
}

func toUsage(row domain.StorageQuota) domain.Usage {
	return domain.Usage{
		DivisionID: row.DivisionID,
		UsedSize:   row.UsedSize,
		MaxSize:    row.MaxSize,
		Percent:    bytesize.Percent(row.UsedSize, row.MaxSize),
		Remaining:  bytesize.Remaining(row.UsedSize, row.MaxSize),
		UsedHuman:  bytesize.Format(row.UsedSize),
		MaxHuman:   bytesize.Format(bytesize.Remaining(0, row.MaxSize)),
	}
}

// normalizeDivisionIDs dedupes and sorts ids ascending.
func normalizeDivisionIDs(ids []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, domain.ErrInvalidDivision
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
