package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "open"
	SessionStatusClosed SessionStatus = "closed"
)

type VarianceStatus string

const (
	VarianceOK      VarianceStatus = "ok"
	VarianceWarning VarianceStatus = "warning"
)

type MovementType string

const (
	MovementTypeSale    MovementType = "sale"
	MovementTypeRefund  MovementType = "refund"
	MovementTypePaidIn  MovementType = "paid_in"
	MovementTypePaidOut MovementType = "paid_out"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeSale, MovementTypeRefund, MovementTypePaidIn, MovementTypePaidOut:
		return true
	}
	return false
}

// RegisterSession tracks a cash drawer between open and close. Expected,
// counted and variance amounts are filled in at close and immutable after.
type RegisterSession struct {
	ID             string           `gorm:"type:uuid;primaryKey" json:"id"`
	RegisterName   string           `gorm:"type:varchar(64);not null" json:"register_name"`
	CashierID      string           `gorm:"type:varchar(64);not null" json:"cashier_id"`
	OpeningFloat   decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"opening_float"`
	ExpectedCash   *decimal.Decimal `gorm:"type:decimal(18,2)" json:"expected_cash,omitempty"`
	CountedCash    *decimal.Decimal `gorm:"type:decimal(18,2)" json:"counted_cash,omitempty"`
	Variance       *decimal.Decimal `gorm:"type:decimal(18,2)" json:"variance,omitempty"`
	VarianceStatus VarianceStatus   `gorm:"type:varchar(16)" json:"variance_status,omitempty"`
	Status         SessionStatus    `gorm:"type:varchar(16);index;not null" json:"status"`
	OpenedAt       time.Time        `json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`

	Movements []CashMovement `gorm:"foreignKey:SessionID" json:"movements,omitempty"`
}

// CashMovement is an append-only drawer event. Corrections are recorded as
// inverse movements, never edits.
type CashMovement struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string          `gorm:"type:uuid;index;not null" json:"-"`
	Type      MovementType    `gorm:"type:varchar(16);not null" json:"type"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Reference *string         `gorm:"type:varchar(64)" json:"reference,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
