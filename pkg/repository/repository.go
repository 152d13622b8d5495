// Package repository provides a generic gorm-backed store for simple reference tables.
package repository

import (
	"context"

	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the CRUD surface shared by reference-data tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	FindByID(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, id int64, fields map[string]any) error
	Count(ctx context.Context, query *T) (int64, error)
}
