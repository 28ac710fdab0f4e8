// Package inventory is the restock collaborator for the refund processor.
// Restocking is decoupled from refund validity: a failed restock is logged
// and reported, never rolled back into the refund.
package inventory

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"tillpoint/internal/database/models"
)

const reasonRefundRestock = "refund-restock"

// Restocker puts refunded units back on the shelf.
type Restocker interface {
	Restock(ctx context.Context, productID string, quantity int32, reference string) error
}

// StockKeeper adjusts product stock in postgres and records a movement row
// for every adjustment.
type StockKeeper struct {
	db *gorm.DB
}

func NewStockKeeper(db *gorm.DB) *StockKeeper {
	return &StockKeeper{db: db}
}

var _ Restocker = (*StockKeeper)(nil)

func (k *StockKeeper) Restock(ctx context.Context, productID string, quantity int32, reference string) error {
	if quantity <= 0 {
		return errors.New("restock quantity must be positive")
	}
	return k.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Update("stock_on_hand", gorm.Expr("stock_on_hand + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("product not found: " + productID)
		}

		ref := reference
		movement := models.StockMovement{
			ProductID: productID,
			Quantity:  quantity,
			Reason:    reasonRefundRestock,
			Reference: &ref,
		}
		return tx.Create(&movement).Error
	})
}

// MemoryStock mirrors StockKeeper for tests and standalone mode.
type MemoryStock struct {
	mu        sync.Mutex
	onHand    map[string]int32
	movements []models.StockMovement
}

func NewMemoryStock() *MemoryStock {
	return &MemoryStock{onHand: make(map[string]int32)}
}

var _ Restocker = (*MemoryStock)(nil)

func (m *MemoryStock) Set(productID string, quantity int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHand[productID] = quantity
}

func (m *MemoryStock) OnHand(productID string) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onHand[productID]
}

func (m *MemoryStock) Movements() []models.StockMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StockMovement, len(m.movements))
	copy(out, m.movements)
	return out
}

func (m *MemoryStock) Restock(ctx context.Context, productID string, quantity int32, reference string) error {
	if quantity <= 0 {
		return errors.New("restock quantity must be positive")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onHand[productID] += quantity
	ref := reference
	m.movements = append(m.movements, models.StockMovement{
		ProductID: productID,
		Quantity:  quantity,
		Reason:    reasonRefundRestock,
		Reference: &ref,
	})
	return nil
}
