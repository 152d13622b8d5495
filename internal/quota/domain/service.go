package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/bytesize"
	"gorm.io/gorm"
)

// Service owns the storage quota ledger. Mutations run inside the caller's
// transaction so quota rows commit together with the document rows.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, divisionIDs []int64, totalBytes int64) (Allocation, error)
	Release(ctx context.Context, tx *gorm.DB, allocation Allocation) error
	Replace(ctx context.Context, tx *gorm.DB, previous Allocation, divisionIDs []int64, totalBytes int64) (Allocation, error)
	SetMax(ctx context.Context, divisionID, maxSize int64) error
	Usage(ctx context.Context, divisionID int64) (*Usage, error)
	ListUsage(ctx context.Context) ([]Usage, error)
	Reconcile(ctx context.Context, divisionID int64) (ReconcileResult, error)
	ReconcileAll(ctx context.Context) ([]ReconcileResult, error)
}

var (
	ErrQuotaExceeded   = errors.New("quota_exceeded")
	ErrInvalidDivision = errors.New("invalid_division")
	ErrInvalidSize     = errors.New("invalid_size")
	ErrInvalidMaxSize  = errors.New("invalid_max_size")
)

// ExceededError names the division that rejected a reservation.
type ExceededError struct {
	DivisionID int64
	Requested  int64
	Remaining  int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s: division %d requested %s, remaining %s",
		ErrQuotaExceeded.Error(),
		e.DivisionID,
		bytesize.Format(e.Requested),
		bytesize.Format(e.Remaining),
	)
}

func (e *ExceededError) Unwrap() error { return ErrQuotaExceeded }
