package repository

import (
	"context"
	"errors"
	"time"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateItem(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO items (id, code, name, division_id, category_id, unit, stock, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Code,
		item.Name,
		item.DivisionID,
		item.CategoryID,
		item.Unit,
		item.Stock,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, division_id, category_id, unit, stock, created_at, updated_at
		 FROM items WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, division_id, category_id, unit, stock, created_at, updated_at
		 FROM items WHERE code = ?`,
		code,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListByScope(ctx context.Context, db *gorm.DB, divisionID *int64) ([]domain.Item, error) {
	var items []domain.Item
	stmt := db.WithContext(ctx).Model(&domain.Item{})
	if divisionID == nil {
		stmt = stmt.Where("division_id IS NULL")
	} else {
		stmt = stmt.Where("division_id = ?", *divisionID)
	}
	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStock(ctx context.Context, db *gorm.DB, id, stock int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE items SET stock = ?, updated_at = ? WHERE id = ?`,
		stock,
		now,
		id,
	).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, trx *domain.ItemTransaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO item_transactions (id, item_id, type, quantity, user_id, description, reference_type, reference_id, occurred_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trx.ID,
		trx.ItemID,
		trx.Type,
		trx.Quantity,
		trx.UserID,
		trx.Description,
		trx.ReferenceType,
		trx.ReferenceID,
		trx.OccurredAt,
		trx.CreatedAt,
	).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, itemID int64) ([]domain.ItemTransaction, error) {
	var items []domain.ItemTransaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, item_id, type, quantity, user_id, description, reference_type, reference_id, occurred_at, created_at
		 FROM item_transactions WHERE item_id = ? ORDER BY occurred_at ASC, id ASC`,
		itemID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) LedgerChecks(ctx context.Context, db *gorm.DB, itemID *int64) ([]domain.LedgerCheck, error) {
	var checks []domain.LedgerCheck
	stmt := db.WithContext(ctx).
		Table("items AS i").
		Select("i.id AS item_id, i.code AS code, i.stock AS stock, COALESCE(SUM(t.quantity), 0) AS ledger_sum").
		Joins("LEFT JOIN item_transactions AS t ON t.item_id = i.id").
		Group("i.id, i.code, i.stock").
		Order("i.id ASC")
	if itemID != nil {
		stmt = stmt.Where("i.id = ?", *itemID)
	}
	if err := stmt.Scan(&checks).Error; err != nil {
		return nil, err
	}
	return checks, nil
}
