package domain

import (
	"context"

	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, doc *Document) error
	Update(ctx context.Context, db *gorm.DB, doc *Document) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Document, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id int64) (*Document, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest, after int64, size int) ([]Document, error)

	ListDivisions(ctx context.Context, db *gorm.DB, documentID int64) ([]DocumentDivision, error)
	ReplaceDivisions(ctx context.Context, db *gorm.DB, documentID int64, allocation quotadomain.Allocation) error
	ListCategoryIDs(ctx context.Context, db *gorm.DB, documentID int64) ([]int64, error)
	ReplaceCategories(ctx context.Context, db *gorm.DB, documentID int64, categoryIDs []int64) error
	ListUserIDs(ctx context.Context, db *gorm.DB, documentID int64) ([]int64, error)
	ReplaceUsers(ctx context.Context, db *gorm.DB, documentID int64, userIDs []int64) error
}
