package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CustomItemPrefix marks non-catalog line items keyed by display name only.
const CustomItemPrefix = "custom-"

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusRefunded        OrderStatus = "refunded"
	OrderStatusPartialRefunded OrderStatus = "partial-refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled,
		OrderStatusRefunded, OrderStatusPartialRefunded:
		return true
	}
	return false
}

type DiscountType string

const (
	DiscountTypeAmount  DiscountType = "amount"
	DiscountTypePercent DiscountType = "percent"
)

type RefundMethod string

const (
	RefundMethodCash        RefundMethod = "cash"
	RefundMethodCard        RefundMethod = "card"
	RefundMethodStoreCredit RefundMethod = "store_credit"
)

func (m RefundMethod) Valid() bool {
	switch m {
	case RefundMethodCash, RefundMethodCard, RefundMethodStoreCredit:
		return true
	}
	return false
}

type ItemCondition string

const (
	ItemConditionNew     ItemCondition = "new"
	ItemConditionDamaged ItemCondition = "damaged"
	ItemConditionOpened  ItemCondition = "opened"
)

func (c ItemCondition) Valid() bool {
	switch c {
	case ItemConditionNew, ItemConditionDamaged, ItemConditionOpened:
		return true
	}
	return false
}

// Order is the finalized sale document. Totals are frozen at checkout;
// refunds accumulate in the embedded append-only sequence and the current
// net value is always derived, never written back into TotalAmount.
type Order struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"discount"`
	DiscountType   DiscountType    `gorm:"type:varchar(16);not null;default:'amount'" json:"discount_type"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"tax"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	Status         OrderStatus     `gorm:"type:varchar(20);index;not null" json:"status"`
	CustomerID     *string         `gorm:"type:varchar(64);index" json:"customer_id,omitempty"`
	CustomerName   *string         `gorm:"type:varchar(128)" json:"customer_name,omitempty"`
	PaymentMethod  string          `gorm:"type:varchar(32)" json:"payment_method,omitempty"`
	PaymentDetails *string         `gorm:"type:text" json:"payment_details,omitempty"`
	Refunds        []Refund        `gorm:"foreignKey:OrderID" json:"refunds,omitempty"`

	// Version is the optimistic concurrency stamp checked on every update.
	Version   int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time `json:"timestamp"`
	UpdatedAt time.Time `json:"-"`
}

// TotalRefunded sums the embedded refund amounts.
func (o *Order) TotalRefunded() decimal.Decimal {
	total := decimal.Zero
	for _, r := range o.Refunds {
		total = total.Add(r.Amount)
	}
	return total
}

// RemainingBalance is the order's face value minus all refunds, floored at zero.
func (o *Order) RemainingBalance() decimal.Decimal {
	remaining := o.TotalAmount.Sub(o.TotalRefunded())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// OrderItem is an immutable snapshot of a line at checkout time. Quantity is
// never mutated by refunds; refunded units are tracked on the refund records.
type OrderItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID      string          `gorm:"type:uuid;index;not null" json:"-"`
	ItemID       string          `gorm:"type:varchar(64);not null" json:"id"`
	Name         string          `gorm:"type:varchar(128);not null" json:"name"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	Quantity     int32           `gorm:"not null" json:"quantity"`
	Discount     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount"`
	DiscountType DiscountType    `gorm:"type:varchar(16);not null;default:'amount'" json:"discount_type"`
}

// IsCustom reports whether the line was rung up outside the catalog.
func (i OrderItem) IsCustom() bool {
	return strings.HasPrefix(i.ItemID, CustomItemPrefix)
}

// Refund is append-only: once written it is never edited or deleted.
type Refund struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID        string          `gorm:"type:uuid;index;not null" json:"-"`
	Items          []RefundItem    `gorm:"foreignKey:RefundID" json:"items"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"tax"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method         RefundMethod    `gorm:"type:varchar(20);not null" json:"method"`
	Note           *string         `gorm:"type:text" json:"note,omitempty"`
	IdempotencyKey *string         `gorm:"type:varchar(64);index" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `json:"timestamp"`
}

type RefundItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	RefundID  string          `gorm:"type:uuid;index;not null" json:"-"`
	ItemID    string          `gorm:"type:varchar(64);not null" json:"id"`
	Name      string          `gorm:"type:varchar(128);not null" json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	Quantity  int32           `gorm:"not null" json:"quantity"`
	Condition ItemCondition   `gorm:"type:varchar(16);not null" json:"condition"`
}
