package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/clock"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/config"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/observability/metrics"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/scopelock"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/guard"
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
	Inventory     inventorydomain.Service
	Clock         clock.Clock
	Policy        *config.PolicyHolder
	Locker        scopelock.Locker       `optional:"true"`
	Metrics       *metrics.Metrics       `optional:"true"`
	LedgerMetrics *metrics.LedgerMetrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	inventory     inventorydomain.Service
	clock         clock.Clock
	policy        *config.PolicyHolder
	locker        scopelock.Locker
	metrics       *metrics.Metrics
	ledgerMetrics *metrics.LedgerMetrics
}

func New(p Params) domain.Service {
	locker := p.Locker
	if locker == nil {
		locker = scopelock.Noop{}
	}
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("stockopname.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		inventory:     p.Inventory,
		clock:         p.Clock,
		policy:        p.Policy,
		locker:        locker,
		metrics:       p.Metrics,
		ledgerMetrics: p.LedgerMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.StockOpname, error) {
	if req.OpnameDate.IsZero() {
		return nil, domain.ErrInvalidDate
	}
	if req.DivisionID != nil && *req.DivisionID <= 0 {
		return nil, domain.ErrInvalidScope
	}
	scopeKey := domain.ScopeKeyFor(req.DivisionID)

	release, err := s.locker.Acquire(ctx, scopeKey)
	if err != nil {
		if errors.Is(err, scopelock.ErrScopeBusy) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	now := s.clock.Now().UTC()
	opname := &domain.StockOpname{
		ID:         s.genID.Generate().Int64(),
		DivisionID: req.DivisionID,
		ScopeKey:   scopeKey,
		OpnameDate: guard.DateOnly(req.OpnameDate),
		Status:     domain.StatusPending,
		Notes:      strings.TrimSpace(req.Notes),
		CreatedBy:  req.ActorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		start := time.Now()
		open, err := s.repo.FindOpenByScopeForUpdate(ctx, tx, scopeKey)
		s.ledgerMetrics.ObserveLockWait(metrics.LockResourceStockOpname, time.Since(start))
		if err != nil {
			return err
		}
		if open != nil {
			return domain.ErrConflict
		}

		if err := s.repo.Create(ctx, tx, opname); err != nil {
			// The open scope index catches a racing create the check could not see.
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrConflict
			}
			return err
		}

		items, err := s.inventory.ListInScope(ctx, tx, req.DivisionID)
		if err != nil {
			return err
		}
		lines := make([]domain.StockOpnameItem, 0, len(items))
		for _, item := range items {
			lines = append(lines, domain.StockOpnameItem{
				ID:            s.genID.Generate().Int64(),
				StockOpnameID: opname.ID,
				ItemID:        item.ID,
				SystemStock:   item.Stock,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		if err := s.repo.CreateItems(ctx, tx, lines); err != nil {
			return err
		}
		opname.Items = lines
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			s.ledgerMetrics.IncOperationError("stock_opname.create", err)
		}
		return nil, err
	}

	s.metrics.RecordOpnameTransition(ctx, "", string(domain.StatusPending))
	s.log.Info("stock opname created",
		zap.Int64("stock_opname_id", opname.ID),
		zap.Int64("scope_key", scopeKey),
		zap.Int("items", len(opname.Items)),
	)
	return opname, nil
}

func (s *Service) Process(ctx context.Context, req domain.ProcessRequest) (*domain.StockOpname, error) {
	var (
		opname   *domain.StockOpname
		previous domain.Status
		adjusted int
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		opname, err = s.lockOpname(ctx, tx, req.OpnameID)
		if err != nil {
			return err
		}
		if err := guard.EnsureCanProcess(opname.Status); err != nil {
			return err
		}
		previous = opname.Status

		items, byItem, err := s.loadItems(ctx, tx, opname.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		for _, line := range req.Lines {
			item, ok := byItem[line.ItemID]
			if !ok {
				return domain.ErrUnknownItem
			}
			if line.PhysicalStock != nil {
				if *line.PhysicalStock < 0 {
					return domain.ErrInvalidQuantity
				}
				counted := *line.PhysicalStock
				item.PhysicalStock = &counted
			}
			item.Notes = strings.TrimSpace(line.Notes)
			item.UpdatedAt = now
			if err := s.repo.UpdateItem(ctx, tx, item); err != nil {
				return err
			}
		}

		if !req.Confirm {
			opname.Status = domain.StatusDraft
			opname.UpdatedAt = now
			return s.repo.UpdateStatus(ctx, tx, opname)
		}

		for _, item := range items {
			if item.PhysicalStock == nil {
				return domain.ErrMissingCount
			}
		}
		for _, item := range items {
			if _, err := s.inventory.SetStock(ctx, tx, s.adjustment(opname, req.ActorID, item.ItemID, *item.PhysicalStock, "Stock opname confirmation", now)); err != nil {
				return err
			}
			adjusted++
		}

		opname.Status = domain.StatusConfirmed
		opname.ConfirmedAt = &now
		opname.UpdatedAt = now
		return s.repo.UpdateStatus(ctx, tx, opname)
	})
	if err != nil {
		s.recordFailure("stock_opname.process", err)
		return nil, err
	}

	s.metrics.RecordOpnameTransition(ctx, string(previous), string(opname.Status))
	s.metrics.RecordStockAdjustment(ctx, domain.ReferenceType, adjusted)
	return s.Get(ctx, opname.ID)
}

func (s *Service) Finalize(ctx context.Context, req domain.FinalizeRequest) (*domain.StockOpname, error) {
	var adjusted int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		opname, err := s.lockOpname(ctx, tx, req.OpnameID)
		if err != nil {
			return err
		}
		loc := s.policy.Get().StockOpname.Location()
		if err := guard.EnsureCanFinalize(opname.Status, opname.OpnameDate, s.clock.Now(), loc); err != nil {
			return err
		}

		items, byItem, err := s.loadItems(ctx, tx, opname.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		for _, line := range req.Lines {
			item, ok := byItem[line.ItemID]
			if !ok {
				return domain.ErrUnknownItem
			}
			if line.FinalStock != nil {
				if *line.FinalStock < 0 {
					return domain.ErrInvalidQuantity
				}
				final := *line.FinalStock
				item.FinalStock = &final
			}
			item.FinalNotes = strings.TrimSpace(line.FinalNotes)
		}

		for _, item := range items {
			if item.FinalStock == nil {
				// Lines left blank keep the confirmed count.
				final := item.SystemStock
				if item.PhysicalStock != nil {
					final = *item.PhysicalStock
				}
				item.FinalStock = &final
			}
			item.UpdatedAt = now
			if err := s.repo.UpdateItem(ctx, tx, item); err != nil {
				return err
			}
			if _, err := s.inventory.SetStock(ctx, tx, s.adjustment(opname, req.ActorID, item.ItemID, *item.FinalStock, "Stock opname finalization", now)); err != nil {
				return err
			}
			adjusted++
		}

		opname.Status = domain.StatusFinalized
		opname.FinalizedAt = &now
		opname.UpdatedAt = now
		return s.repo.UpdateStatus(ctx, tx, opname)
	})
	if err != nil {
		s.recordFailure("stock_opname.finalize", err)
		return nil, err
	}

	s.metrics.RecordOpnameTransition(ctx, string(domain.StatusConfirmed), string(domain.StatusFinalized))
	s.metrics.RecordStockAdjustment(ctx, domain.ReferenceType, adjusted)
	s.log.Info("stock opname finalized", zap.Int64("stock_opname_id", req.OpnameID), zap.Int("items", adjusted))
	return s.Get(ctx, req.OpnameID)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.StockOpname, error) {
	opname, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if opname == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	opname.Items = items
	return opname, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.StockOpname, error) {
	if req.Status != nil {
		switch *req.Status {
		case domain.StatusPending, domain.StatusDraft, domain.StatusConfirmed, domain.StatusFinalized:
		default:
			return nil, domain.ErrInvalidStatus
		}
	}
	return s.repo.List(ctx, s.db, req)
}

func (s *Service) lockOpname(ctx context.Context, tx *gorm.DB, id int64) (*domain.StockOpname, error) {
	start := time.Now()
	opname, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	s.ledgerMetrics.ObserveLockWait(metrics.LockResourceStockOpname, time.Since(start))
	if err != nil {
		return nil, err
	}
	if opname == nil {
		return nil, domain.ErrNotFound
	}
	return opname, nil
}

// loadItems returns the opname lines in ascending item order, which is also
// the order item rows get locked in.
func (s *Service) loadItems(ctx context.Context, tx *gorm.DB, opnameID int64) ([]*domain.StockOpnameItem, map[int64]*domain.StockOpnameItem, error) {
	rows, err := s.repo.ListItems(ctx, tx, opnameID)
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ItemID < rows[j].ItemID })

	items := make([]*domain.StockOpnameItem, 0, len(rows))
	byItem := make(map[int64]*domain.StockOpnameItem, len(rows))
	for i := range rows {
		items = append(items, &rows[i])
		byItem[rows[i].ItemID] = &rows[i]
	}
	return items, byItem, nil
}

func (s *Service) adjustment(opname *domain.StockOpname, actorID, itemID, target int64, description string, now time.Time) inventorydomain.SetStockRequest {
	ref := opname.ID
	return inventorydomain.SetStockRequest{
		ItemID:        itemID,
		Target:        target,
		Type:          inventorydomain.TransactionStockOpname,
		ActorID:       actorID,
		Description:   description,
		ReferenceType: domain.ReferenceType,
		ReferenceID:   &ref,
		OccurredAt:    now,
	}
}

func (s *Service) recordFailure(operation string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrTooEarly),
		errors.Is(err, domain.ErrUnknownItem),
		errors.Is(err, domain.ErrMissingCount),
		errors.Is(err, domain.ErrInvalidQuantity):
		return
	}
	s.ledgerMetrics.IncOperationError(operation, err)
}
