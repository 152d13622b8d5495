package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// LockForUpdate locks the existing rows for ids in ascending division order.
	LockForUpdate(ctx context.Context, db *gorm.DB, divisionIDs []int64) (map[int64]StorageQuota, error)
	// AddUsed applies delta to used_size, creating the row when absent.
	AddUsed(ctx context.Context, db *gorm.DB, divisionID, delta int64, now time.Time) error
	// SubtractUsed lowers used_size by delta without going below zero.
	SubtractUsed(ctx context.Context, db *gorm.DB, divisionID, delta int64, now time.Time) error
	SetUsed(ctx context.Context, db *gorm.DB, divisionID, used int64, now time.Time) error
	UpsertMax(ctx context.Context, db *gorm.DB, divisionID, maxSize int64, now time.Time) error
	FindByDivisionID(ctx context.Context, db *gorm.DB, divisionID int64) (*StorageQuota, error)
	FindAll(ctx context.Context, db *gorm.DB) ([]StorageQuota, error)
	SumAllocated(ctx context.Context, db *gorm.DB, divisionID int64) (int64, error)
}
