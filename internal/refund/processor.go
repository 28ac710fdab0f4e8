// Package refund validates and applies refunds against persisted orders.
// A refund either lands fully (record appended, status updated, one store
// write) or not at all; rejected requests leave the order untouched.
package refund

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tillpoint/internal/database/models"
	"tillpoint/internal/events"
	"tillpoint/internal/inventory"
	"tillpoint/internal/order"
)

// ErrDuplicate reports a replayed idempotency key. The earlier refund stands;
// nothing is applied twice.
var ErrDuplicate = errors.New("refund already applied for this idempotency key")

const maxUpdateAttempts = 3

// ItemRequest names one line to refund. Quantity is the number of units being
// returned now, not the original order quantity.
type ItemRequest struct {
	ItemID    string               `json:"id"`
	Name      string               `json:"name"`
	Quantity  int32                `json:"quantity"`
	Condition models.ItemCondition `json:"condition"`
}

type Request struct {
	OrderID        string
	Items          []ItemRequest
	Method         models.RefundMethod
	Note           *string
	IdempotencyKey string
}

type Result struct {
	Order  *models.Order
	Refund *models.Refund
	// InventoryUpdated is best-effort restock reporting; false never
	// invalidates the refund itself.
	InventoryUpdated bool
}

// Processor serializes refunds per order id and writes through the ledger's
// store with an optimistic version check, so two registers cannot append
// against the same stale refund history.
type Processor struct {
	store   order.Store
	restock inventory.Restocker
	events  events.Publisher
	locks   sync.Map // order id -> *sync.Mutex
	now     func() time.Time
	newID   func() string
}

func NewProcessor(store order.Store, restocker inventory.Restocker, publisher events.Publisher) *Processor {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Processor{
		store:   store,
		restock: restocker,
		events:  publisher,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

func (p *Processor) orderLock(orderID string) *sync.Mutex {
	mu, _ := p.locks.LoadOrStore(orderID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ProcessRefund applies a partial or full refund. Distinct failure kinds:
// order.ErrNotFound (order or item id), order.ErrValidation (quantities,
// empty selection, bad method), order.ErrStateConflict (cancelled or already
// fully refunded), ErrDuplicate (replayed idempotency key) and
// order.ErrPersistence (store write failed).
func (p *Processor) ProcessRefund(ctx context.Context, req Request) (*Result, error) {
	if req.OrderID == "" {
		return nil, fmt.Errorf("%w: order id required", order.ErrValidation)
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown refund method %q", order.ErrValidation, req.Method)
	}

	mu := p.orderLock(req.OrderID)
	mu.Lock()
	defer mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		result, err := p.apply(ctx, req)
		if errors.Is(err, order.ErrVersionConflict) {
			lastErr = err
			continue
		}
		return result, err
	}
	return nil, fmt.Errorf("%w: giving up after %d attempts: %v", order.ErrPersistence, maxUpdateAttempts, lastErr)
}

func (p *Processor) apply(ctx context.Context, req Request) (*Result, error) {
	o, err := p.store.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	if o.Status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: cancelled orders are not eligible for refund", order.ErrStateConflict)
	}

	if req.IdempotencyKey != "" {
		for _, r := range o.Refunds {
			if r.IdempotencyKey != nil && *r.IdempotencyKey == req.IdempotencyKey {
				return nil, ErrDuplicate
			}
		}
	}

	if !o.RemainingBalance().IsPositive() {
		return nil, fmt.Errorf("%w: order is already fully refunded", order.ErrStateConflict)
	}

	refundItems, subtotal, err := p.buildItems(o, req.Items)
	if err != nil {
		return nil, err
	}

	// Proportional tax: the refund carries the same effective tax rate the
	// order was charged at.
	tax := decimal.Zero
	if o.TaxAmount.IsPositive() && o.Subtotal.IsPositive() {
		tax = subtotal.Mul(o.TaxAmount.Div(o.Subtotal))
	}
	amount := subtotal.Add(tax)

	rec := models.Refund{
		ID:        p.newID(),
		OrderID:   o.ID,
		Items:     refundItems,
		Subtotal:  subtotal,
		TaxAmount: tax,
		Amount:    amount,
		Method:    req.Method,
		Note:      req.Note,
		CreatedAt: p.now(),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		rec.IdempotencyKey = &key
	}

	o.Refunds = append(o.Refunds, rec)

	totalRefunded := o.TotalRefunded()
	if totalRefunded.GreaterThanOrEqual(o.TotalAmount) {
		o.Status = models.OrderStatusRefunded
	} else if totalRefunded.IsPositive() {
		o.Status = models.OrderStatusPartialRefunded
	}

	if err := p.store.Update(ctx, o); err != nil {
		return nil, err
	}

	inventoryUpdated := p.restockReturned(ctx, rec)

	p.events.Publish(ctx, events.OrderEvent{
		Type:      events.OrderRefunded,
		OrderID:   o.ID,
		RefundID:  rec.ID,
		Status:    o.Status,
		Total:     o.TotalAmount,
		Refunded:  totalRefunded,
		Timestamp: p.now(),
	})

	return &Result{Order: o, Refund: &o.Refunds[len(o.Refunds)-1], InventoryUpdated: inventoryUpdated}, nil
}

// buildItems validates requested quantities against what is still refundable
// and snapshots the refund lines at the order's frozen unit prices. Requests
// naming the same order line more than once draw down one shared allowance,
// so a single request cannot return more units than were sold.
func (p *Processor) buildItems(o *models.Order, requests []ItemRequest) ([]models.RefundItem, decimal.Decimal, error) {
	items := make([]models.RefundItem, 0, len(requests))
	subtotal := decimal.Zero
	anyRefunded := false
	pending := make(map[*models.OrderItem]int32)

	for _, req := range requests {
		if req.Quantity < 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: refund quantity for %q must not be negative", order.ErrValidation, req.Name)
		}
		if req.Quantity == 0 {
			continue
		}

		original := findOrderItem(o, req.ItemID, req.Name)
		if original == nil {
			return nil, decimal.Zero, fmt.Errorf("%w: item %q is not part of order %s", order.ErrNotFound, displayKey(req.ItemID, req.Name), o.ID)
		}

		condition := req.Condition
		if condition == "" {
			condition = models.ItemConditionOpened
		}
		if !condition.Valid() {
			return nil, decimal.Zero, fmt.Errorf("%w: unknown item condition %q", order.ErrValidation, req.Condition)
		}

		available := original.Quantity - refundedQuantity(o, original) - pending[original]
		if req.Quantity > available {
			return nil, decimal.Zero, fmt.Errorf(
				"%w: requested quantity %d exceeds available quantity %d for item %q",
				order.ErrValidation, req.Quantity, available, original.Name)
		}
		pending[original] += req.Quantity

		items = append(items, models.RefundItem{
			ItemID:    original.ItemID,
			Name:      original.Name,
			UnitPrice: original.UnitPrice,
			Quantity:  req.Quantity,
			Condition: condition,
		})
		subtotal = subtotal.Add(original.UnitPrice.Mul(decimal.NewFromInt32(req.Quantity)))
		anyRefunded = true
	}

	if !anyRefunded {
		return nil, decimal.Zero, fmt.Errorf("%w: no items selected for refund", order.ErrValidation)
	}
	return items, subtotal, nil
}

// findOrderItem resolves a refund line against the order: item id is the
// primary key, display name is the fallback for custom lines recorded
// without one. The two keys are never conflated, so a catalog item and a
// custom item sharing a name cannot collide.
func findOrderItem(o *models.Order, itemID, name string) *models.OrderItem {
	if itemID != "" {
		for i := range o.Items {
			if o.Items[i].ItemID == itemID {
				return &o.Items[i]
			}
		}
		return nil
	}
	for i := range o.Items {
		if o.Items[i].IsCustom() && o.Items[i].Name == name {
			return &o.Items[i]
		}
	}
	return nil
}

// refundedQuantity sums prior refunds for the line with the same two-key
// strategy used for lookup.
func refundedQuantity(o *models.Order, item *models.OrderItem) int32 {
	var total int32
	for _, r := range o.Refunds {
		for _, ri := range r.Items {
			if ri.ItemID != "" {
				if ri.ItemID == item.ItemID {
					total += ri.Quantity
				}
			} else if ri.Name == item.Name {
				total += ri.Quantity
			}
		}
	}
	return total
}

// restockReturned signals the inventory collaborator for every unit returned
// in sellable condition. Failures are logged and reported in the result only.
func (p *Processor) restockReturned(ctx context.Context, rec models.Refund) bool {
	attempted := false
	ok := true
	for _, item := range rec.Items {
		if item.Condition != models.ItemConditionNew {
			continue
		}
		if strings.HasPrefix(item.ItemID, models.CustomItemPrefix) {
			// custom lines have no catalog stock to return to
			continue
		}
		attempted = true
		if err := p.restock.Restock(ctx, item.ItemID, item.Quantity, rec.ID); err != nil {
			log.Printf("refund %s: restock %s x%d failed: %v", rec.ID, item.ItemID, item.Quantity, err)
			ok = false
		}
	}
	return attempted && ok
}

func displayKey(itemID, name string) string {
	if itemID != "" {
		return itemID
	}
	return name
}
