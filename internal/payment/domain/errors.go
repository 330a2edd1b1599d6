package domain

import "errors"

// Business errors surfaced by the payment workflow. Infrastructure maps its
// own failures onto these so callers can branch with errors.Is.
var (
	// ErrAlreadyExists signals a duplicate orderId. The consumer treats it
	// as success-equivalent.
	ErrAlreadyExists = errors.New("payment already exists for order")

	// ErrNotFound signals an unknown orderId or user lookup.
	ErrNotFound = errors.New("payment not found")

	// ErrExternalService signals an outcome-oracle transport or protocol
	// failure. The PROCESSING payment written before the call stays persisted.
	ErrExternalService = errors.New("external service unavailable")

	// ErrInvalidInput signals malformed creation input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProcessing is the catch-all for unexpected failures.
	ErrProcessing = errors.New("payment processing failed")
)
