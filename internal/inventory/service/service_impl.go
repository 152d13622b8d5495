package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/metrics"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Metrics       *metrics.Metrics       `optional:"true"`
	LedgerMetrics *metrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	repo          domain.Repository
	genID         *snowflake.Node
	metrics       *metrics.Metrics
	ledgerMetrics *metrics.LedgerMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("inventory.service"),
		repo:          p.Repo,
		genID:         p.GenID,
		metrics:       p.Metrics,
		ledgerMetrics: p.LedgerMetrics,
	}
}

func (s *Service) CreateItem(ctx context.Context, req domain.CreateItemRequest) (*domain.Item, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return nil, domain.ErrInvalidUnit
	}
	if req.OpeningStock < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:         s.genID.Generate().Int64(),
		Code:       code,
		Name:       name,
		DivisionID: req.DivisionID,
		CategoryID: req.CategoryID,
		Unit:       unit,
		Stock:      req.OpeningStock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByCode(ctx, tx, code)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateCode
		}
		if err := s.repo.CreateItem(ctx, tx, item); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateCode
			}
			return err
		}
		if item.Stock == 0 {
			return nil
		}
		// Opening stock goes through the ledger so stock equals the transaction sum from day one.
		return s.repo.InsertTransaction(ctx, tx, &domain.ItemTransaction{
			ID:          s.genID.Generate().Int64(),
			ItemID:      item.ID,
			Type:        domain.TransactionIn,
			Quantity:    item.Stock,
			UserID:      req.ActorID,
			Description: "Opening stock",
			OccurredAt:  now,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	if item.Stock > 0 {
		s.metrics.RecordStockAdjustment(ctx, string(domain.TransactionIn), 1)
	}
	return item, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) Record(ctx context.Context, req domain.RecordRequest) (*domain.ItemTransaction, error) {
	var sign int64
	switch req.Type {
	case domain.TransactionIn:
		sign = 1
	case domain.TransactionOut:
		sign = -1
	default:
		return nil, domain.ErrInvalidType
	}
	if req.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := time.Now().UTC()
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	var trx *domain.ItemTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.lockItem(ctx, tx, req.ItemID)
		if err != nil {
			return err
		}

		quantity := sign * req.Quantity
		if item.Stock+quantity < 0 {
			return domain.ErrInsufficientStock
		}

		trx = &domain.ItemTransaction{
			ID:          s.genID.Generate().Int64(),
			ItemID:      item.ID,
			Type:        req.Type,
			Quantity:    quantity,
			UserID:      req.ActorID,
			Description: strings.TrimSpace(req.Description),
			OccurredAt:  occurredAt.UTC(),
			CreatedAt:   now,
		}
		if err := s.repo.InsertTransaction(ctx, tx, trx); err != nil {
			return err
		}
		return s.repo.UpdateStock(ctx, tx, item.ID, item.Stock+quantity, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStockAdjustment(ctx, string(req.Type), 1)
	return trx, nil
}

// SetStock always appends a transaction, including a zero delta, so every
// opname step leaves a trace in the ledger.
func (s *Service) SetStock(ctx context.Context, tx *gorm.DB, req domain.SetStockRequest) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	if req.Target < 0 {
		return 0, domain.ErrInvalidQuantity
	}
	trxType := req.Type
	if trxType == "" {
		trxType = domain.TransactionStockOpname
	}

	item, err := s.lockItem(ctx, tx, req.ItemID)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	delta := req.Target - item.Stock
	trx := &domain.ItemTransaction{
		ID:          s.genID.Generate().Int64(),
		ItemID:      item.ID,
		Type:        trxType,
		Quantity:    delta,
		UserID:      req.ActorID,
		Description: strings.TrimSpace(req.Description),
		ReferenceID: req.ReferenceID,
		OccurredAt:  occurredAt.UTC(),
		CreatedAt:   now,
	}
	if ref := strings.TrimSpace(req.ReferenceType); ref != "" {
		trx.ReferenceType = &ref
	}
	if err := s.repo.InsertTransaction(ctx, tx, trx); err != nil {
		return 0, err
	}
	if err := s.repo.UpdateStock(ctx, tx, item.ID, req.Target, now); err != nil {
		return 0, err
	}
	return delta, nil
}

func (s *Service) ListInScope(ctx context.Context, tx *gorm.DB, divisionID *int64) ([]domain.Item, error) {
	if tx == nil {
		tx = s.db
	}
	return s.repo.ListByScope(ctx, tx, divisionID)
}

func (s *Service) ListTransactions(ctx context.Context, itemID int64) ([]domain.ItemTransaction, error) {
	if _, err := s.Get(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, s.db, itemID)
}

func (s *Service) Verify(ctx context.Context, itemID int64) (domain.LedgerCheck, error) {
	checks, err := s.repo.LedgerChecks(ctx, s.db, &itemID)
	if err != nil {
		return domain.LedgerCheck{}, err
	}
	if len(checks) == 0 {
		return domain.LedgerCheck{}, domain.ErrNotFound
	}
	return checks[0], nil
}

func (s *Service) VerifyAll(ctx context.Context) ([]domain.LedgerCheck, error) {
	checks, err := s.repo.LedgerChecks(ctx, s.db, nil)
	if err != nil {
		return nil, err
	}
	for _, check := range checks {
		if !check.Consistent() {
			s.log.Warn("item stock diverges from ledger",
				zap.Int64("item_id", check.ItemID),
				zap.Int64("stock", check.Stock),
				zap.Int64("ledger_sum", check.LedgerSum),
			)
		}
	}
	return checks, nil
}

func (s *Service) lockItem(ctx context.Context, tx *gorm.DB, id int64) (*domain.Item, error) {
	start := time.Now()
	item, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	s.ledgerMetrics.ObserveLockWait(metrics.LockResourceItem, time.Since(start))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}
