package order

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tillpoint/internal/database/models"
)

// GormStore persists orders in postgres. Line items are written once at
// creation; refunds are append-only, so Update only ever inserts new refund
// rows and rewrites the order header under a version check.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) Create(ctx context.Context, o *models.Order) error {
	o.Version = 1
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return persistenceErr("create order", err)
	}
	return nil
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Refunds.Items").
		First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceErr("get order", err)
	}
	return &o, nil
}

func (s *GormStore) Update(ctx context.Context, o *models.Order) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(map[string]interface{}{
				"status":        o.Status,
				"customer_id":   o.CustomerID,
				"customer_name": o.CustomerName,
				"version":       o.Version + 1,
			})
		if res.Error != nil {
			return persistenceErr("update order", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
				return persistenceErr("update order", err)
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		for i := range o.Refunds {
			o.Refunds[i].OrderID = o.ID
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&o.Refunds[i]).Error; err != nil {
				return persistenceErr("append refund", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.Version++
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Order{}, "id = ?", id)
		if res.Error != nil {
			return persistenceErr("delete order", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// embedded records go with the order
		if err := tx.Delete(&models.OrderItem{}, "order_id = ?", id).Error; err != nil {
			return persistenceErr("delete order items", err)
		}
		var refundIDs []string
		if err := tx.Model(&models.Refund{}).Where("order_id = ?", id).
			Pluck("id", &refundIDs).Error; err != nil {
			return persistenceErr("delete refunds", err)
		}
		if len(refundIDs) > 0 {
			if err := tx.Delete(&models.RefundItem{}, "refund_id IN ?", refundIDs).Error; err != nil {
				return persistenceErr("delete refund items", err)
			}
			if err := tx.Delete(&models.Refund{}, "order_id = ?", id).Error; err != nil {
				return persistenceErr("delete refunds", err)
			}
		}
		return nil
	})
}

func (s *GormStore) List(ctx context.Context, f Filter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items").
		Preload("Refunds.Items")

	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.CustomerID != "" {
		query = query.Where("customer_id = ?", f.CustomerID)
	}
	if !f.From.IsZero() {
		query = query.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("created_at < ?", f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceErr("count orders", err)
	}

	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	page := f.Page
	if page < 1 {
		page = 1
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&orders).Error; err != nil {
		return nil, 0, persistenceErr("list orders", err)
	}
	return orders, total, nil
}
