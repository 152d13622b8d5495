package repository

import (
	"context"
	"time"

	"github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LockForUpdate(ctx context.Context, db *gorm.DB, divisionIDs []int64) (map[int64]domain.StorageQuota, error) {
	result := make(map[int64]domain.StorageQuota, len(divisionIDs))
	if len(divisionIDs) == 0 {
		return result, nil
	}

	var rows []domain.StorageQuota
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("division_id IN ?", divisionIDs).
		Order("division_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.DivisionID] = row
	}
	return result, nil
}

func (r *repo) AddUsed(ctx context.Context, db *gorm.DB, divisionID, delta int64, now time.Time) error {
	row := domain.StorageQuota{
		DivisionID: divisionID,
		MaxSize:    0,
		UsedSize:   delta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "division_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"used_size":  gorm.Expr("division_storage_quotas.used_size + ?", delta),
			"updated_at": now,
		}),
	}).Create(&row).Error
}

func (r *repo) SubtractUsed(ctx context.Context, db *gorm.DB, divisionID, delta int64, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE division_storage_quotas
		 SET used_size = CASE WHEN used_size >= ? THEN used_size - ? ELSE 0 END, updated_at = ?
		 WHERE division_id = ?`,
		delta,
		delta,
		now,
		divisionID,
	).Error
}

func (r *repo) SetUsed(ctx context.Context, db *gorm.DB, divisionID, used int64, now time.Time) error {
	row := domain.StorageQuota{
		DivisionID: divisionID,
		UsedSize:   used,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "division_id"}},
		DoUpdates: clause.Assignments(map[string]any{"used_size": used, "updated_at": now}),
	}).Create(&row).Error
}

func (r *repo) UpsertMax(ctx context.Context, db *gorm.DB, divisionID, maxSize int64, now time.Time) error {
	row := domain.StorageQuota{
		DivisionID: divisionID,
		MaxSize:    maxSize,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "division_id"}},
		DoUpdates: clause.Assignments(map[string]any{"max_size": maxSize, "updated_at": now}),
	}).Create(&row).Error
}

func (r *repo) FindByDivisionID(ctx context.Context, db *gorm.DB, divisionID int64) (*domain.StorageQuota, error) {
	var row domain.StorageQuota
	err := db.WithContext(ctx).Raw(
		`SELECT division_id, max_size, used_size, created_at, updated_at
		 FROM division_storage_quotas WHERE division_id = ?`,
		divisionID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.DivisionID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) FindAll(ctx context.Context, db *gorm.DB) ([]domain.StorageQuota, error) {
	var rows []domain.StorageQuota
	err := db.WithContext(ctx).Raw(
		`SELECT division_id, max_size, used_size, created_at, updated_at
		 FROM division_storage_quotas ORDER BY division_id ASC`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) SumAllocated(ctx context.Context, db *gorm.DB, divisionID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(allocated_size), 0) FROM document_divisions WHERE division_id = ?`,
		divisionID,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
