package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tillpoint/internal/database/models"
	"tillpoint/internal/events"
	"tillpoint/internal/pricing"
)

// Draft is what checkout hands over: frozen item snapshots plus the
// order-level discount choice. Totals are computed here, not by the caller.
type Draft struct {
	ID             string
	Items          []models.OrderItem
	Discount       decimal.Decimal
	DiscountType   models.DiscountType
	Status         models.OrderStatus
	CustomerID     *string
	CustomerName   *string
	PaymentMethod  string
	PaymentDetails *string
}

// Ledger owns the persisted order collection. All mutation goes through it;
// the refund processor re-writes orders only via its Update path.
type Ledger struct {
	store   Store
	events  events.Publisher
	taxRate decimal.Decimal
	now     func() time.Time
	newID   func() string
}

func NewLedger(store Store, publisher events.Publisher, taxRate decimal.Decimal) *Ledger {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Ledger{
		store:   store,
		events:  publisher,
		taxRate: taxRate,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// Store exposes the backing store for collaborators that share it.
func (l *Ledger) Store() Store { return l.store }

// CreateOrder finalizes a draft: assigns id and timestamp, prices the items,
// defaults the status to completed and appends the order. Existing orders
// are never mutated by this path.
func (l *Ledger) CreateOrder(ctx context.Context, draft Draft) (*models.Order, error) {
	if len(draft.Items) == 0 {
		return nil, validationErr("order must have at least one item")
	}
	for i := range draft.Items {
		item := &draft.Items[i]
		if item.Quantity < 1 {
			return nil, validationErr("item %q quantity must be at least 1", item.Name)
		}
		if item.UnitPrice.IsNegative() {
			return nil, validationErr("item %q price must not be negative", item.Name)
		}
		if item.DiscountType == "" {
			item.DiscountType = models.DiscountTypeAmount
		}
		if item.ItemID == "" {
			item.ItemID = models.CustomItemPrefix + l.newID()
		}
	}

	status := draft.Status
	if status == "" {
		status = models.OrderStatusCompleted
	}
	if status != models.OrderStatusCompleted && status != models.OrderStatusPending {
		return nil, validationErr("new order status must be pending or completed, got %q", status)
	}

	discountType := draft.DiscountType
	if discountType == "" {
		discountType = models.DiscountTypeAmount
	}

	subtotal := pricing.Subtotal(draft.Items)
	discountAmount := pricing.OrderDiscountAmount(subtotal, draft.Discount, discountType)
	tax := pricing.Tax(subtotal, discountAmount, l.taxRate)

	id := draft.ID
	if id == "" {
		id = l.newID()
	}

	o := &models.Order{
		ID:             id,
		Items:          draft.Items,
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		DiscountType:   discountType,
		TaxAmount:      tax,
		TotalAmount:    pricing.Total(subtotal, discountAmount, tax),
		Status:         status,
		CustomerID:     draft.CustomerID,
		CustomerName:   draft.CustomerName,
		PaymentMethod:  draft.PaymentMethod,
		PaymentDetails: draft.PaymentDetails,
		CreatedAt:      l.now(),
	}

	if err := l.store.Create(ctx, o); err != nil {
		return nil, err
	}

	l.events.Publish(ctx, events.OrderEvent{
		Type:      events.OrderCreated,
		OrderID:   o.ID,
		Status:    o.Status,
		Total:     o.TotalAmount,
		Timestamp: l.now(),
	})
	return o, nil
}

func (l *Ledger) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	return l.store.GetByID(ctx, id)
}

func (l *Ledger) ListOrders(ctx context.Context, f Filter) ([]models.Order, int64, error) {
	return l.store.List(ctx, f)
}

// Update describes a partial edit to an order. Nil fields are left untouched.
type Update struct {
	Status   *models.OrderStatus
	Customer *CustomerUpdate
}

// CustomerUpdate replaces the customer reference as a whole; nil fields
// revert the order to a walk-in sale.
type CustomerUpdate struct {
	ID   *string
	Name *string
}

// UpdateOrder applies every requested edit in one read-modify-write, so a
// combined status and customer change lands atomically or not at all. The
// status set is unconditional: this is the manual override path and does not
// re-validate against refund totals.
func (l *Ledger) UpdateOrder(ctx context.Context, id string, upd Update) (*models.Order, error) {
	if upd.Status == nil && upd.Customer == nil {
		return nil, validationErr("nothing to update")
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, validationErr("unknown order status %q", *upd.Status)
	}

	o, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Status != nil {
		o.Status = *upd.Status
	}
	if upd.Customer != nil {
		o.CustomerID = upd.Customer.ID
		o.CustomerName = upd.Customer.Name
	}
	if err := l.store.Update(ctx, o); err != nil {
		return nil, err
	}

	if upd.Status != nil {
		l.events.Publish(ctx, events.OrderEvent{
			Type:      events.OrderStatusChanged,
			OrderID:   o.ID,
			Status:    o.Status,
			Total:     o.TotalAmount,
			Timestamp: l.now(),
		})
	}
	return o, nil
}

// UpdateOrderStatus sets only the status.
func (l *Ledger) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	return l.UpdateOrder(ctx, id, Update{Status: &status})
}

// UpdateOrderCustomer replaces only the customer reference.
func (l *Ledger) UpdateOrderCustomer(ctx context.Context, id string, customerID, customerName *string) (*models.Order, error) {
	return l.UpdateOrder(ctx, id, Update{Customer: &CustomerUpdate{ID: customerID, Name: customerName}})
}

// DeleteOrder removes the order permanently, embedded refunds included.
func (l *Ledger) DeleteOrder(ctx context.Context, id string) error {
	if err := l.store.Delete(ctx, id); err != nil {
		return err
	}
	l.events.Publish(ctx, events.OrderEvent{
		Type:      events.OrderDeleted,
		OrderID:   id,
		Timestamp: l.now(),
	})
	return nil
}

// GetTotalRefundedAmount sums refund amounts for the order; zero when the
// order has no refunds.
func (l *Ledger) GetTotalRefundedAmount(ctx context.Context, id string) (decimal.Decimal, error) {
	o, err := l.store.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return o.TotalRefunded(), nil
}

// GetRemainingBalance is the order total minus accumulated refunds, never
// negative.
func (l *Ledger) GetRemainingBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	o, err := l.store.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return o.RemainingBalance(), nil
}
