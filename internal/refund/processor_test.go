package refund

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/database/models"
	"tillpoint/internal/inventory"
	"tillpoint/internal/order"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	store *order.MemoryStore
	stock *inventory.MemoryStock
	proc  *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: order.NewMemoryStore(),
		stock: inventory.NewMemoryStock(),
	}
	f.proc = NewProcessor(f.store, f.stock, nil)
	seq := 0
	f.proc.newID = func() string {
		seq++
		return fmt.Sprintf("refund-%d", seq)
	}
	f.proc.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func (f *fixture) seed(t *testing.T, o models.Order) {
	t.Helper()
	require.NoError(t, f.store.Create(context.Background(), &o))
}

// simpleOrder is one 100.00 line with no tax, paid in full.
func simpleOrder(id string) models.Order {
	return models.Order{
		ID: id,
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Coffee", UnitPrice: dec("100"), Quantity: 1},
		},
		Subtotal:    dec("100"),
		TotalAmount: dec("100"),
		Status:      models.OrderStatusCompleted,
	}
}

func TestRefundFullOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, simpleOrder("o-1"))

	res, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusRefunded, res.Order.Status)
	assert.True(t, res.Refund.Amount.Equal(dec("100")), "amount = %s", res.Refund.Amount)
	assert.True(t, res.Order.RemainingBalance().IsZero())

	stored, err := f.store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, stored.Refunds, 1)
	assert.Equal(t, models.OrderStatusRefunded, stored.Status)
}

func TestPartialThenFullRefundStatusProgression(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Coffee", UnitPrice: dec("40"), Quantity: 1},
			{ItemID: "sku-2", Name: "Beans", UnitPrice: dec("60"), Quantity: 1},
		},
		Subtotal:    dec("100"),
		TotalAmount: dec("100"),
		Status:      models.OrderStatusCompleted,
	})

	res, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPartialRefunded, res.Order.Status)
	assert.True(t, res.Order.RemainingBalance().Equal(dec("60")))

	res, err = f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-2", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, res.Order.Status)
	assert.True(t, res.Order.RemainingBalance().IsZero())
	assert.Len(t, res.Order.Refunds, 2)
}

func TestProportionalTax(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// order taxed at 8.25%: subtotal 200, tax 16.50
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Coffee", UnitPrice: dec("50"), Quantity: 4},
		},
		Subtotal:    dec("200"),
		TaxAmount:   dec("16.50"),
		TotalAmount: dec("216.50"),
		Status:      models.OrderStatusCompleted,
	})

	res, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCard,
	})
	require.NoError(t, err)

	// 50 * (16.50 / 200) = 4.125, kept exact until display
	assert.True(t, res.Refund.TaxAmount.Equal(dec("4.125")), "tax = %s", res.Refund.TaxAmount)
	assert.True(t, res.Refund.Amount.Equal(dec("54.125")), "amount = %s", res.Refund.Amount)
	assert.Equal(t, "4.13", res.Refund.TaxAmount.StringFixed(2))
	assert.Equal(t, "54.13", res.Refund.Amount.StringFixed(2))
}

func TestRefundQuantityTracking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Coffee", UnitPrice: dec("10"), Quantity: 3},
		},
		Subtotal:    dec("30"),
		TotalAmount: dec("30"),
		Status:      models.OrderStatusCompleted,
	})

	_, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 2, Condition: models.ItemConditionNew}},
		Method:  models.RefundMethodCash,
	})
	require.NoError(t, err)

	// only 1 unit remains refundable
	_, err = f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 2}},
		Method:  models.RefundMethodCash,
	})
	require.ErrorIs(t, err, order.ErrValidation)
	assert.Contains(t, err.Error(), "exceeds available quantity 1")

	_, err = f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	require.NoError(t, err)
}

func TestDuplicateLinesShareOneAllowance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Coffee", UnitPrice: dec("10"), Quantity: 3},
		},
		Subtotal:    dec("30"),
		TotalAmount: dec("30"),
		Status:      models.OrderStatusCompleted,
	})

	// two lines for the same item must not each validate against the full
	// original quantity
	_, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items: []ItemRequest{
			{ItemID: "sku-1", Quantity: 2},
			{ItemID: "sku-1", Quantity: 2},
		},
		Method: models.RefundMethodCash,
	})
	require.ErrorIs(t, err, order.ErrValidation)
	assert.Contains(t, err.Error(), "exceeds available quantity 1")

	stored, err := f.store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Refunds)
	assert.Equal(t, models.OrderStatusCompleted, stored.Status)

	// a split that stays within the allowance still lands as one refund
	res, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items: []ItemRequest{
			{ItemID: "sku-1", Quantity: 2},
			{ItemID: "sku-1", Quantity: 1},
		},
		Method: models.RefundMethodCash,
	})
	require.NoError(t, err)
	assert.True(t, res.Refund.Amount.Equal(dec("30")))
	assert.Equal(t, models.OrderStatusRefunded, res.Order.Status)
}

func TestDuplicateCustomLinesShareOneAllowance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "custom-xyz", Name: "Repair", UnitPrice: dec("20"), Quantity: 1},
		},
		Subtotal:    dec("20"),
		TotalAmount: dec("20"),
		Status:      models.OrderStatusCompleted,
	})

	// the same custom line resolved by id and by name is one allowance
	_, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items: []ItemRequest{
			{ItemID: "custom-xyz", Quantity: 1},
			{Name: "Repair", Quantity: 1},
		},
		Method: models.RefundMethodCash,
	})
	require.ErrorIs(t, err, order.ErrValidation)

	stored, err := f.store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Refunds)
}

func TestRejectedRefundLeavesOrderUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, simpleOrder("o-1"))

	before, err := f.store.GetByID(ctx, "o-1")
	require.NoError(t, err)

	cases := []Request{
		{OrderID: "o-1", Items: []ItemRequest{{ItemID: "sku-1", Quantity: 5}}, Method: models.RefundMethodCash},
		{OrderID: "o-1", Items: []ItemRequest{{ItemID: "sku-9", Quantity: 1}}, Method: models.RefundMethodCash},
		{OrderID: "o-1", Items: []ItemRequest{{ItemID: "sku-1", Quantity: -1}}, Method: models.RefundMethodCash},
		{OrderID: "o-1", Items: []ItemRequest{{ItemID: "sku-1", Quantity: 0}}, Method: models.RefundMethodCash},
		{OrderID: "o-1", Items: nil, Method: models.RefundMethodCash},
		{OrderID: "o-1", Items: []ItemRequest{{ItemID: "sku-1", Quantity: 1}}, Method: "check"},
		{OrderID: "o-1", Items: []ItemRequest{{ItemID: "sku-1", Quantity: 1, Condition: "pristine"}}, Method: models.RefundMethodCash},
	}
	for _, req := range cases {
		_, err := f.proc.ProcessRefund(ctx, req)
		require.Error(t, err, "request %+v", req)
	}

	after, err := f.store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Empty(t, after.Refunds)
	assert.Equal(t, before.Version, after.Version)
}

func TestRefundErrorKinds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, simpleOrder("o-1"))

	_, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "missing",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	assert.ErrorIs(t, err, order.ErrNotFound)

	_, err = f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-9", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	assert.ErrorIs(t, err, order.ErrNotFound)

	_, err = f.proc.ProcessRefund(ctx, Request{
		Items:  []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method: models.RefundMethodCash,
	})
	assert.ErrorIs(t, err, order.ErrValidation)
}

func TestCancelledOrderNotRefundable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := simpleOrder("o-1")
	o.Status = models.OrderStatusCancelled
	f.seed(t, o)

	_, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	assert.ErrorIs(t, err, order.ErrStateConflict)
}

func TestFullyRefundedOrderNotRefundable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, simpleOrder("o-1"))

	_, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	require.NoError(t, err)

	_, err = f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	assert.ErrorIs(t, err, order.ErrStateConflict)
}

func TestIdempotencyKeyReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Coffee", UnitPrice: dec("10"), Quantity: 4},
		},
		Subtotal:    dec("40"),
		TotalAmount: dec("40"),
		Status:      models.OrderStatusCompleted,
	})

	req := Request{
		OrderID:        "o-1",
		Items:          []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:         models.RefundMethodCash,
		IdempotencyKey: "client-key-1",
	}

	_, err := f.proc.ProcessRefund(ctx, req)
	require.NoError(t, err)

	_, err = f.proc.ProcessRefund(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicate)

	stored, err := f.store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Len(t, stored.Refunds, 1)

	// a fresh key refunds the next unit
	req.IdempotencyKey = "client-key-2"
	_, err = f.proc.ProcessRefund(ctx, req)
	require.NoError(t, err)
}

func TestRestockOnlyNewCondition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.stock.Set("sku-1", 10)
	f.stock.Set("sku-2", 10)
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Coffee", UnitPrice: dec("10"), Quantity: 3},
			{ItemID: "sku-2", Name: "Beans", UnitPrice: dec("5"), Quantity: 2},
			{ItemID: "custom-abc", Name: "Gift wrap", UnitPrice: dec("3"), Quantity: 1},
		},
		Subtotal:    dec("43"),
		TotalAmount: dec("43"),
		Status:      models.OrderStatusCompleted,
	})

	res, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items: []ItemRequest{
			{ItemID: "sku-1", Quantity: 2, Condition: models.ItemConditionNew},
			{ItemID: "sku-2", Quantity: 1, Condition: models.ItemConditionDamaged},
			{ItemID: "custom-abc", Quantity: 1, Condition: models.ItemConditionNew},
		},
		Method: models.RefundMethodCash,
	})
	require.NoError(t, err)

	assert.True(t, res.InventoryUpdated)
	assert.EqualValues(t, 12, f.stock.OnHand("sku-1"))
	assert.EqualValues(t, 10, f.stock.OnHand("sku-2"), "damaged units stay off the shelf")
	require.Len(t, f.stock.Movements(), 1)
	assert.Equal(t, "sku-1", f.stock.Movements()[0].ProductID)
}

func TestNoRestockAttemptedReportsFalse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, simpleOrder("o-1"))

	// condition defaults to opened, so nothing goes back on the shelf
	res, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	require.NoError(t, err)
	assert.False(t, res.InventoryUpdated)
	assert.Empty(t, f.stock.Movements())
}

func TestCustomItemNameFallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Repair", UnitPrice: dec("80"), Quantity: 1},
			{ItemID: "custom-xyz", Name: "Repair", UnitPrice: dec("20"), Quantity: 1},
		},
		Subtotal:    dec("100"),
		TotalAmount: dec("100"),
		Status:      models.OrderStatusCompleted,
	})

	// no id on the request: the name matches the custom line only, never the
	// catalog line with the same display name
	res, err := f.proc.ProcessRefund(ctx, Request{
		OrderID: "o-1",
		Items:   []ItemRequest{{Name: "Repair", Quantity: 1}},
		Method:  models.RefundMethodCash,
	})
	require.NoError(t, err)
	require.Len(t, res.Refund.Items, 1)
	assert.Equal(t, "custom-xyz", res.Refund.Items[0].ItemID)
	assert.True(t, res.Refund.Amount.Equal(dec("20")))
}

func TestConcurrentRefundsNeverOverRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	// default uuid ids: fixture's sequential generator is not safe across goroutines
	f.proc = NewProcessor(f.store, f.stock, nil)
	f.seed(t, models.Order{
		ID: "o-1",
		Items: []models.OrderItem{
			{ItemID: "sku-1", Name: "Coffee", UnitPrice: dec("10"), Quantity: 4},
		},
		Subtotal:    dec("40"),
		TotalAmount: dec("40"),
		Status:      models.OrderStatusCompleted,
	})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.proc.ProcessRefund(ctx, Request{
				OrderID: "o-1",
				Items:   []ItemRequest{{ItemID: "sku-1", Quantity: 1}},
				Method:  models.RefundMethodCash,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.Error(t, err)
		}
	}
	assert.Equal(t, 4, succeeded, "exactly the 4 purchased units refund")

	stored, err := f.store.GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Len(t, stored.Refunds, 4)
	assert.True(t, stored.TotalRefunded().Equal(dec("40")))
	assert.Equal(t, models.OrderStatusRefunded, stored.Status)
}
