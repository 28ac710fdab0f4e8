package order

import (
	"context"
	"sort"
	"sync"

	"tillpoint/internal/database/models"
)

// MemoryStore keeps orders in a mutex-guarded map. It backs the test suite
// and standalone single-register deployments that run without postgres.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]models.Order)}
}

var _ Store = (*MemoryStore)(nil)

func copyOrder(o models.Order) models.Order {
	cp := o
	cp.Items = make([]models.OrderItem, len(o.Items))
	copy(cp.Items, o.Items)
	cp.Refunds = make([]models.Refund, len(o.Refunds))
	for i, r := range o.Refunds {
		rc := r
		rc.Items = make([]models.RefundItem, len(r.Items))
		copy(rc.Items, r.Items)
		cp.Refunds[i] = rc
	}
	if o.CustomerID != nil {
		v := *o.CustomerID
		cp.CustomerID = &v
	}
	if o.CustomerName != nil {
		v := *o.CustomerName
		cp.CustomerName = &v
	}
	if o.PaymentDetails != nil {
		v := *o.PaymentDetails
		cp.PaymentDetails = &v
	}
	return cp
}

func (m *MemoryStore) Create(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return validationErr("order %s already exists", o.ID)
	}
	o.Version = 1
	m.orders[o.ID] = copyOrder(*o)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copyOrder(o)
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != o.Version {
		return ErrVersionConflict
	}
	o.Version++
	m.orders[o.ID] = copyOrder(*o)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return ErrNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]models.Order, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]models.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && (o.CustomerID == nil || *o.CustomerID != f.CustomerID) {
			continue
		}
		if !f.From.IsZero() && o.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !o.CreatedAt.Before(f.To) {
			continue
		}
		matched = append(matched, copyOrder(o))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.PageSize
		if start >= len(matched) {
			return []models.Order{}, total, nil
		}
		end := start + f.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}
