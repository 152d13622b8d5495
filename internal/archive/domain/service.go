package domain

import (
	"context"
	"errors"
)

type Service interface {
	CreateContext(ctx context.Context, req CreateContextRequest) (*CategoryContext, error)
	CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error)
	CreateClassification(ctx context.Context, req CreateClassificationRequest) (*Classification, error)
	ListContexts(ctx context.Context) ([]CategoryContext, error)
	ListCategories(ctx context.Context, contextID *int64) ([]Category, error)
	ListClassifications(ctx context.Context) ([]Classification, error)
	EnsureCategoriesExist(ctx context.Context, ids []int64) error
	EnsureClassificationExists(ctx context.Context, id int64) error
}

type CreateContextRequest struct {
	Name string `json:"name"`
}

type CreateCategoryRequest struct {
	ContextID int64  `json:"context_id,string"`
	Name      string `json:"name"`
}

type CreateClassificationRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var (
	ErrInvalidName           = errors.New("invalid_name")
	ErrInvalidCode           = errors.New("invalid_code")
	ErrDuplicate             = errors.New("duplicate")
	ErrContextNotFound       = errors.New("category_context_not_found")
	ErrCategoryNotFound      = errors.New("category_not_found")
	ErrClassificationMissing = errors.New("classification_not_found")
)
