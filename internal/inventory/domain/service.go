package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Service interface {
	CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error)
	Get(ctx context.Context, id int64) (*Item, error)
	Record(ctx context.Context, req RecordRequest) (*ItemTransaction, error)
	// SetStock posts Target minus the current stock inside tx and returns that delta.
	SetStock(ctx context.Context, tx *gorm.DB, req SetStockRequest) (int64, error)
	ListInScope(ctx context.Context, tx *gorm.DB, divisionID *int64) ([]Item, error)
	ListTransactions(ctx context.Context, itemID int64) ([]ItemTransaction, error)
	Verify(ctx context.Context, itemID int64) (LedgerCheck, error)
	VerifyAll(ctx context.Context) ([]LedgerCheck, error)
}

type CreateItemRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	DivisionID   *int64 `json:"division_id,string"`
	CategoryID   *int64 `json:"category_id,string"`
	Unit         string `json:"unit"`
	OpeningStock int64  `json:"opening_stock"`
	ActorID      int64  `json:"-"`
}

type RecordRequest struct {
	ItemID      int64           `json:"-"`
	Type        TransactionType `json:"type"`
	Quantity    int64           `json:"quantity"`
	ActorID     int64           `json:"-"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type SetStockRequest struct {
	ItemID        int64
	Target        int64
	Type          TransactionType
	ActorID       int64
	Description   string
	ReferenceType string
	ReferenceID   *int64
	OccurredAt    time.Time
}

var (
	ErrNotFound          = errors.New("item_not_found")
	ErrInvalidCode       = errors.New("invalid_code")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidUnit       = errors.New("invalid_unit")
	ErrDuplicateCode     = errors.New("duplicate_code")
	ErrInvalidType       = errors.New("invalid_transaction_type")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInsufficientStock = errors.New("insufficient_stock")
)
