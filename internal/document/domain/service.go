package domain

import (
	"context"
	"errors"

	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db/pagination"
)

type Service interface {
	Upload(ctx context.Context, req UploadRequest) (*Document, error)
	Update(ctx context.Context, req UpdateRequest) (*Document, error)
	Delete(ctx context.Context, req DeleteRequest) error
	Get(ctx context.Context, id int64) (*Document, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type File struct {
	Name    string
	Content []byte
}

type UploadRequest struct {
	ActorID          int64
	Title            string
	Description      string
	ClassificationID *int64
	CategoryIDs      []int64
	DivisionIDs      []int64
	UserIDs          []int64
	File             File
}

// UpdateRequest leaves nil fields untouched. A non-nil empty slice clears the set.
type UpdateRequest struct {
	ActorID          int64
	DocumentID       int64
	Title            *string
	Description      *string
	ClassificationID *int64
	CategoryIDs      *[]int64
	DivisionIDs      *[]int64
	UserIDs          *[]int64
	File             *File
}

type DeleteRequest struct {
	ActorID    int64
	DocumentID int64
}

type ListRequest struct {
	DivisionID *int64
	UserID     *int64
	CategoryID *int64
	pagination.Pagination
}

type ListResponse struct {
	Documents []Document `json:"documents"`
	pagination.PageInfo
}

var (
	ErrNotFound         = errors.New("document_not_found")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidFile      = errors.New("invalid_file")
	ErrInvalidReference = errors.New("invalid_reference")
)
