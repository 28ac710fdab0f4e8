package order

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ledger and the refund processor. Callers branch
// on these with errors.Is; messages wrapped around them carry the detail.
var (
	// ErrNotFound: the referenced order or line item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation: malformed or out-of-range input. The request was
	// rejected before any state changed.
	ErrValidation = errors.New("validation failed")

	// ErrStateConflict: the operation is not legal for the order's current
	// status (cancelled, or already fully refunded).
	ErrStateConflict = errors.New("state conflict")

	// ErrPersistence: the backing store failed. Retryable, unlike the kinds
	// above.
	ErrPersistence = errors.New("persistence failure")

	// ErrVersionConflict: optimistic concurrency stamp mismatch on update.
	// The caller re-reads and retries.
	ErrVersionConflict = errors.New("version conflict")
)

func validationErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}
