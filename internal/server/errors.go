package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	archivedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/archive/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/authorization"
	"github.com/syaokifaradisa9/e-office-app-sub001/internal/blob"
	divisiondomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/division/domain"
	documentdomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/document/domain"
	inventorydomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/inventory/domain"
	quotadomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/quota/domain"
	stockopnamedomain "github.com/syaokifaradisa9/e-office-app-sub001/internal/stockopname/domain"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/bytesize"
	"github.com/syaokifaradisa9/e-office-app-sub001/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// Over-quota is reported against the upload field so forms can show it inline.
	if errors.Is(err, quotadomain.ErrQuotaExceeded) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   "file",
					Code:    "quota_exceeded",
					Message: quotaMessage(err),
				},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many uploads, retry later",
		}
	case errors.Is(err, stockopnamedomain.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "an open stock opname already exists for this scope",
		}
	case errors.Is(err, stockopnamedomain.ErrInvalidState),
		errors.Is(err, divisiondomain.ErrDuplicate),
		errors.Is(err, archivedomain.ErrDuplicate),
		errors.Is(err, inventorydomain.ErrDuplicateCode):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, stockopnamedomain.ErrTooEarly):
		return http.StatusTooEarly, errorPayload{
			Type:    "too_early",
			Message: "stock opname can only be finalized after the opname date",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func quotaMessage(err error) string {
	var exceeded *quotadomain.ExceededError
	if errors.As(err, &exceeded) {
		return "storage quota exceeded, remaining " + bytesize.Format(exceeded.Remaining)
	}
	return "storage quota exceeded"
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, authorization.ErrInvalidRole),
		errors.Is(err, authorization.ErrUnknownCapability):
		return true
	case isDocumentValidationError(err),
		isQuotaValidationError(err),
		isStockOpnameValidationError(err),
		isInventoryValidationError(err),
		isReferenceValidationError(err):
		return true
	default:
		return false
	}
}

func isDocumentValidationError(err error) bool {
	switch {
	case errors.Is(err, documentdomain.ErrInvalidTitle),
		errors.Is(err, documentdomain.ErrInvalidFile),
		errors.Is(err, documentdomain.ErrInvalidReference):
		return true
	default:
		return false
	}
}

func isQuotaValidationError(err error) bool {
	switch {
	case errors.Is(err, quotadomain.ErrInvalidDivision),
		errors.Is(err, quotadomain.ErrInvalidSize),
		errors.Is(err, quotadomain.ErrInvalidMaxSize):
		return true
	default:
		return false
	}
}

func isStockOpnameValidationError(err error) bool {
	switch {
	case errors.Is(err, stockopnamedomain.ErrUnknownItem),
		errors.Is(err, stockopnamedomain.ErrMissingCount),
		errors.Is(err, stockopnamedomain.ErrInvalidDate),
		errors.Is(err, stockopnamedomain.ErrInvalidScope),
		errors.Is(err, stockopnamedomain.ErrInvalidQuantity),
		errors.Is(err, stockopnamedomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}

func isInventoryValidationError(err error) bool {
	switch {
	case errors.Is(err, inventorydomain.ErrInvalidCode),
		errors.Is(err, inventorydomain.ErrInvalidName),
		errors.Is(err, inventorydomain.ErrInvalidUnit),
		errors.Is(err, inventorydomain.ErrInvalidType),
		errors.Is(err, inventorydomain.ErrInvalidQuantity),
		errors.Is(err, inventorydomain.ErrInsufficientStock):
		return true
	default:
		return false
	}
}

func isReferenceValidationError(err error) bool {
	switch {
	case errors.Is(err, divisiondomain.ErrInvalidName),
		errors.Is(err, divisiondomain.ErrInvalidCode),
		errors.Is(err, archivedomain.ErrInvalidName),
		errors.Is(err, archivedomain.ErrInvalidCode),
		errors.Is(err, archivedomain.ErrContextNotFound):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, documentdomain.ErrNotFound),
		errors.Is(err, stockopnamedomain.ErrNotFound),
		errors.Is(err, inventorydomain.ErrNotFound),
		errors.Is(err, divisiondomain.ErrNotFound),
		errors.Is(err, blob.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, sentinel := range []error{
		documentdomain.ErrInvalidReference,
		pagination.ErrInvalidPageToken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "insufficient_stock":
		return "quantity exceeds the available stock"
	case "stock_opname_missing_count":
		return "every item needs a physical count before confirmation"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog returns the error type and code logged for a failed request.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
