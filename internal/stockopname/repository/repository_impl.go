package repository

import (
	"context"
	"errors"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, opname *domain.StockOpname) error {
	opname.OpenScopeKey = opname.OpenScope()
	return db.WithContext(ctx).Exec(
		`INSERT INTO stock_opnames (id, division_id, scope_key, open_scope_key, opname_date, status, notes, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		opname.ID,
		opname.DivisionID,
		opname.ScopeKey,
		opname.OpenScopeKey,
		opname.OpnameDate,
		opname.Status,
		opname.Notes,
		opname.CreatedBy,
		opname.CreatedAt,
		opname.UpdatedAt,
	).Error
}

func (r *repo) CreateItems(ctx context.Context, db *gorm.DB, items []domain.StockOpnameItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(items, 200).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.StockOpname, error) {
	var opname domain.StockOpname
	err := db.WithContext(ctx).Where("id = ?", id).First(&opname).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &opname, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.StockOpname, error) {
	var opname domain.StockOpname
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&opname).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &opname, nil
}

func (r *repo) FindOpenByScopeForUpdate(ctx context.Context, db *gorm.DB, scopeKey int64) (*domain.StockOpname, error) {
	var opname domain.StockOpname
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("open_scope_key = ?", scopeKey).
		Order("id ASC").
		First(&opname).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &opname, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.StockOpname, error) {
	var items []domain.StockOpname
	stmt := db.WithContext(ctx).Model(&domain.StockOpname{})

	switch {
	case filter.MainWarehouse:
		stmt = stmt.Where("division_id IS NULL")
	case filter.DivisionID != nil:
		stmt = stmt.Where("division_id = ?", *filter.DivisionID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}

	if err := stmt.Order("opname_date DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, opnameID int64) ([]domain.StockOpnameItem, error) {
	var items []domain.StockOpnameItem
	err := db.WithContext(ctx).
		Where("stock_opname_id = ?", opnameID).
		Order("item_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, item *domain.StockOpnameItem) error {
	return db.WithContext(ctx).Exec(
		`UPDATE stock_opname_items
		 SET physical_stock = ?, notes = ?, final_stock = ?, final_notes = ?, updated_at = ?
		 WHERE id = ?`,
		item.PhysicalStock,
		item.Notes,
		item.FinalStock,
		item.FinalNotes,
		item.UpdatedAt,
		item.ID,
	).Error
}

// UpdateStatus also releases the scope once the opname is finalized.
func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, opname *domain.StockOpname) error {
	opname.OpenScopeKey = opname.OpenScope()
	return db.WithContext(ctx).Exec(
		`UPDATE stock_opnames
		 SET status = ?, open_scope_key = ?, confirmed_at = ?, finalized_at = ?, updated_at = ?
		 WHERE id = ?`,
		opname.Status,
		opname.OpenScopeKey,
		opname.ConfirmedAt,
		opname.FinalizedAt,
		opname.UpdatedAt,
		opname.ID,
	).Error
}
