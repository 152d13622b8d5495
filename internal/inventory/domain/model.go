package domain

import "time"

type TransactionType string

const (
	TransactionIn          TransactionType = "in"
	TransactionOut         TransactionType = "out"
	TransactionStockOpname TransactionType = "stock_opname"
)

// Item is a stocked good. DivisionID nil places it in the main warehouse.
type Item struct {
	ID         int64     `json:"id,string" gorm:"primaryKey"`
	Code       string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name       string    `json:"name" gorm:"type:text;not null"`
	DivisionID *int64    `json:"division_id,string,omitempty" gorm:"index"`
	CategoryID *int64    `json:"category_id,string,omitempty"`
	Unit       string    `json:"unit" gorm:"type:text;not null"`
	Stock      int64     `json:"stock" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (Item) TableName() string { return "items" }

// ItemTransaction is an append-only stock movement. Quantity is signed.
type ItemTransaction struct {
	ID            int64           `json:"id,string" gorm:"primaryKey"`
	ItemID        int64           `json:"item_id,string" gorm:"not null;index"`
	Type          TransactionType `json:"type" gorm:"type:text;not null"`
	Quantity      int64           `json:"quantity" gorm:"not null"`
	UserID        int64           `json:"user_id,string" gorm:"not null"`
	Description   string          `json:"description" gorm:"type:text"`
	ReferenceType *string         `json:"reference_type,omitempty" gorm:"type:text"`
	ReferenceID   *int64          `json:"reference_id,string,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at" gorm:"not null"`
}

func (ItemTransaction) TableName() string { return "item_transactions" }

// LedgerCheck compares an item's stock with the sum of its transactions.
type LedgerCheck struct {
	ItemID    int64  `json:"item_id,string"`
	Code      string `json:"code"`
	Stock     int64  `json:"stock"`
	LedgerSum int64  `json:"ledger_sum"`
}

func (c LedgerCheck) Consistent() bool { return c.Stock == c.LedgerSum }
