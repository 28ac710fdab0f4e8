package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(128);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	StockOnHand int32           `gorm:"not null;default:0" json:"stock_on_hand"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StockMovement is the audit trail behind every stock adjustment. Refund
// restocks land here with reason "refund-restock".
type StockMovement struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID string    `gorm:"type:varchar(64);index;not null" json:"product_id"`
	Quantity  int32     `gorm:"not null" json:"quantity"`
	Reason    string    `gorm:"type:varchar(64);not null" json:"reason"`
	Reference *string   `gorm:"type:varchar(64)" json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Customer struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	Email     *string   `gorm:"type:varchar(128)" json:"email,omitempty"`
	Phone     *string   `gorm:"type:varchar(32)" json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
