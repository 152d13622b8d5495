package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	CreateItem(ctx context.Context, db *gorm.DB, item *Item) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Item, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Item, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*Item, error)
	// ListByScope returns items of a division, or of the main warehouse when divisionID is nil.
	ListByScope(ctx context.Context, db *gorm.DB, divisionID *int64) ([]Item, error)
	UpdateStock(ctx context.Context, db *gorm.DB, id, stock int64, now time.Time) error
	InsertTransaction(ctx context.Context, db *gorm.DB, trx *ItemTransaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, itemID int64) ([]ItemTransaction, error)
	LedgerChecks(ctx context.Context, db *gorm.DB, itemID *int64) ([]LedgerCheck, error)
}
