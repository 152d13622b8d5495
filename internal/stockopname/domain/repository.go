package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, opname *StockOpname) error
	CreateItems(ctx context.Context, db *gorm.DB, items []StockOpnameItem) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*StockOpname, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*StockOpname, error)
	// FindOpenByScopeForUpdate returns the non-finalized opname of a scope, if any.
	FindOpenByScopeForUpdate(ctx context.Context, db *gorm.DB, scopeKey int64) (*StockOpname, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]StockOpname, error)
	ListItems(ctx context.Context, db *gorm.DB, opnameID int64) ([]StockOpnameItem, error)
	UpdateItem(ctx context.Context, db *gorm.DB, item *StockOpnameItem) error
	UpdateStatus(ctx context.Context, db *gorm.DB, opname *StockOpname) error
}
