package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*StockOpname, error)
	Process(ctx context.Context, req ProcessRequest) (*StockOpname, error)
	Finalize(ctx context.Context, req FinalizeRequest) (*StockOpname, error)
	Get(ctx context.Context, id int64) (*StockOpname, error)
	List(ctx context.Context, req ListRequest) ([]StockOpname, error)
}

type CreateRequest struct {
	DivisionID *int64    `json:"division_id,string"`
	OpnameDate time.Time `json:"opname_date"`
	Notes      string    `json:"notes"`
	ActorID    int64     `json:"-"`
}

type ProcessLine struct {
	ItemID        int64  `json:"item_id,string"`
	PhysicalStock *int64 `json:"physical_stock"`
	Notes         string `json:"notes"`
}

type ProcessRequest struct {
	OpnameID int64         `json:"-"`
	ActorID  int64         `json:"-"`
	Lines    []ProcessLine `json:"items"`
	// Confirm applies the counts to stock; otherwise the opname is saved as draft.
	Confirm bool `json:"confirm"`
}

type FinalizeLine struct {
	ItemID     int64  `json:"item_id,string"`
	FinalStock *int64 `json:"final_stock"`
	FinalNotes string `json:"final_notes"`
}

type FinalizeRequest struct {
	OpnameID int64          `json:"-"`
	ActorID  int64          `json:"-"`
	Lines    []FinalizeLine `json:"items"`
}

type ListRequest struct {
	DivisionID    *int64
	MainWarehouse bool
	Status        *Status
}

var (
	ErrNotFound        = errors.New("stock_opname_not_found")
	ErrConflict        = errors.New("stock_opname_conflict")
	ErrInvalidState    = errors.New("stock_opname_invalid_state")
	ErrTooEarly        = errors.New("stock_opname_too_early")
	ErrUnknownItem     = errors.New("stock_opname_unknown_item")
	ErrMissingCount    = errors.New("stock_opname_missing_count")
	ErrInvalidDate     = errors.New("invalid_opname_date")
	ErrInvalidScope    = errors.New("invalid_scope")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidStatus   = errors.New("invalid_status")
)
