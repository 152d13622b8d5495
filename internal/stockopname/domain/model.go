package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusFinalized Status = "finalized"
)

// MainWarehouseScope is the scope key of opnames without a division.
const MainWarehouseScope int64 = 0

const ReferenceType = "stock_opname"

// StockOpname is one reconciliation of a scope. At most one non-finalized
// record exists per ScopeKey: OpenScopeKey mirrors ScopeKey until the opname
// is finalized and is NULL afterwards, so a plain unique index guards the
// scope on every dialect.
type StockOpname struct {
	ID           int64      `json:"id,string" gorm:"primaryKey"`
	DivisionID   *int64     `json:"division_id,string,omitempty"`
	ScopeKey     int64      `json:"-" gorm:"not null;index"`
	OpenScopeKey *int64     `json:"-" gorm:"uniqueIndex:ux_stock_opnames_open_scope"`
	OpnameDate   time.Time  `json:"opname_date" gorm:"type:date;not null"`
	Status       Status     `json:"status" gorm:"type:text;not null"`
	Notes        string     `json:"notes" gorm:"type:text"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	FinalizedAt  *time.Time `json:"finalized_at,omitempty"`
	CreatedBy    int64      `json:"created_by,string" gorm:"not null"`
	CreatedAt    time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"not null"`

	Items []StockOpnameItem `json:"items,omitempty" gorm:"-"`
}

func (StockOpname) TableName() string { return "stock_opnames" }

// OpenScope is the value stored in open_scope_key for the current status.
func (o StockOpname) OpenScope() *int64 {
	if o.Status == StatusFinalized {
		return nil
	}
	key := o.ScopeKey
	return &key
}

type StockOpnameItem struct {
	ID            int64     `json:"id,string" gorm:"primaryKey"`
	StockOpnameID int64     `json:"stock_opname_id,string" gorm:"not null;uniqueIndex:ux_stock_opname_items_item,priority:1"`
	ItemID        int64     `json:"item_id,string" gorm:"not null;uniqueIndex:ux_stock_opname_items_item,priority:2"`
	SystemStock   int64     `json:"system_stock" gorm:"not null"`
	PhysicalStock *int64    `json:"physical_stock"`
	Notes         string    `json:"notes" gorm:"type:text"`
	FinalStock    *int64    `json:"final_stock"`
	FinalNotes    string    `json:"final_notes" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"not null"`
}

func (StockOpnameItem) TableName() string { return "stock_opname_items" }

// Difference is physical minus system stock, zero until counted.
func (i StockOpnameItem) Difference() int64 {
	if i.PhysicalStock == nil {
		return 0
	}
	return *i.PhysicalStock - i.SystemStock
}

// ScopeKeyFor maps a nullable division to the scope key.
func ScopeKeyFor(divisionID *int64) int64 {
	if divisionID == nil {
		return MainWarehouseScope
	}
	return *divisionID
}
