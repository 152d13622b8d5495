package domain

import (
	"context"
	"errors"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Division, error)
	Get(ctx context.Context, id int64) (*Division, error)
	List(ctx context.Context, req ListRequest) ([]Division, error)
	SetActive(ctx context.Context, id int64, active bool) (*Division, error)
	// EnsureExist fails with ErrNotFound when any id does not name a division.
	EnsureExist(ctx context.Context, ids []int64) error
}

type CreateRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type ListRequest struct {
	Name    string
	Active  *bool
	SortBy  string
	OrderBy string
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidCode = errors.New("invalid_code")
	ErrDuplicate   = errors.New("duplicate_code")
	ErrNotFound    = errors.New("not_found")
)
