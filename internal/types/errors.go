package types

import "errors"

// Business-rule errors shared across services. Handlers map these to HTTP
// status codes in pkg/response.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("not authorized")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyOrder        = errors.New("order has no items")
	ErrConflict          = errors.New("conflicting resource")
	ErrLedgerUnavailable = errors.New("ledger not configured")
)
