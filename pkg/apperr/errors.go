// Package apperr defines the domain error taxonomy shared by the service and
// repository layers. Handlers translate these into HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrProductNotFound  = errors.New("product not found")
	ErrProductExists    = errors.New("product already exists")
	ErrOrderNotFound    = errors.New("order not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAuthentication   = errors.New("authentication failed")

	// ErrPersistence hides storage details from callers. The transaction has
	// been rolled back; the caller must resubmit, nothing retries here.
	ErrPersistence = errors.New("storage operation failed")
)

// ValidationError rejects malformed input before any storage access.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func Validation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StockIssue describes one order line that cannot be satisfied.
type StockIssue struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// InsufficientStockError carries every violating line of a placement request
// so callers see all failing products at once.
type InsufficientStockError struct {
	Issues []StockIssue
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Issues))
}
