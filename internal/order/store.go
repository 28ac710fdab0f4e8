package order

import (
	"context"
	"time"

	"tillpoint/internal/database/models"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status     models.OrderStatus
	CustomerID string
	From       time.Time
	To         time.Time
	Page       int
	PageSize   int
}

// Store is the per-record persistence contract for orders. Implementations
// must return deep, independent copies from reads and enforce the optimistic
// Version stamp on Update: an update whose order carries a stale Version
// fails with ErrVersionConflict and writes nothing.
type Store interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// Update persists the order's mutable state if the version matches,
	// then bumps the version on the stored copy and on o. Only the header
	// fields (status, customer) and newly appended refunds are guaranteed
	// to be written; line items are immutable after Create and edits to
	// them are not part of the contract.
	Update(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter) ([]models.Order, int64, error)
}
