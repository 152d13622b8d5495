package authorization

import (
	"context"
	"errors"
)

type Service interface {
	Authorize(ctx context.Context, role string, capability Capability) error
}

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidRole       = errors.New("invalid_role")
	ErrUnknownCapability = errors.New("unknown_capability")
)
