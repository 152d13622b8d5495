package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// StorageQuota is the per-division byte ledger. MaxSize zero means unlimited.
type StorageQuota struct {
	DivisionID int64     `json:"division_id,string" gorm:"primaryKey;autoIncrement:false"`
	MaxSize    int64     `json:"max_size" gorm:"not null;default:0"`
	UsedSize   int64     `json:"used_size" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null"`
}

func (StorageQuota) TableName() string { return "division_storage_quotas" }

// Allocation maps a division id to the bytes charged to it for one document.
type Allocation map[int64]int64

// DivisionIDs returns the allocated divisions in ascending order.
func (a Allocation) DivisionIDs() []int64 {
	ids := make([]int64, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (a Allocation) Total() int64 {
	var total int64
	for _, size := range a {
		total += size
	}
	return total
}

type Usage struct {
	DivisionID int64           `json:"division_id,string"`
	UsedSize   int64           `json:"used_size"`
	MaxSize    int64           `json:"max_size"`
	Percent    decimal.Decimal `json:"percent"`
	// Remaining is -1 when the division is unlimited.
	Remaining int64  `json:"remaining"`
	UsedHuman string `json:"used_human"`
	MaxHuman  string `json:"max_human"`
}

type ReconcileResult struct {
	DivisionID int64 `json:"division_id,string"`
	Before     int64 `json:"before"`
	After      int64 `json:"after"`
}

func (r ReconcileResult) Drifted() bool { return r.Before != r.After }
