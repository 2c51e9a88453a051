// Package service implements the business rules of the storefront. Services
// accept an already-authenticated identity from the HTTP layer and talk to
// storage through narrow repository interfaces.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/example/storefront/pkg/apperr"
)

// AuditLogger appends mutation records to the audit store. Failures are the
// implementation's problem; services fire entries asynchronously and never
// fail a request over them.
type AuditLogger interface {
	LogAction(ctx context.Context, action, entity, entityID string, data map[string]interface{}) error
}

// ReportCache holds short-lived JSON snapshots, backed by Redis in production.
type ReportCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// domainError reports whether err is part of the error taxonomy callers are
// expected to handle. Anything else is surfaced as ErrPersistence.
func domainError(err error) bool {
	var ve *apperr.ValidationError
	var se *apperr.InsufficientStockError
	if errors.As(err, &ve) || errors.As(err, &se) {
		return true
	}
	for _, known := range []error{
		apperr.ErrUserNotFound,
		apperr.ErrUserExists,
		apperr.ErrProductNotFound,
		apperr.ErrProductExists,
		apperr.ErrOrderNotFound,
		apperr.ErrPermissionDenied,
		apperr.ErrAuthentication,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
