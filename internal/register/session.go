// Package register tracks cash drawer sessions: an opening float, an
// append-only movement stream and a counted-vs-expected variance at close.
package register

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tillpoint/internal/database/models"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrValidation    = errors.New("validation failed")
	ErrSessionClosed = errors.New("session is closed")
)

// Store persists register sessions with their movements.
type Store interface {
	CreateSession(ctx context.Context, s *models.RegisterSession) error
	GetSession(ctx context.Context, id string) (*models.RegisterSession, error)
	UpdateSession(ctx context.Context, s *models.RegisterSession) error
	AppendMovement(ctx context.Context, m *models.CashMovement) error
}

// defaultVarianceWarn is the absolute drawer variance above which a close is
// flagged for review.
var defaultVarianceWarn = decimal.NewFromInt(1)

type Service struct {
	store        Store
	varianceWarn decimal.Decimal
	now          func() time.Time
	newID        func() string
}

// NewService builds the drawer service. A non-positive varianceWarn falls
// back to the 1.00 default.
func NewService(store Store, varianceWarn decimal.Decimal) *Service {
	if !varianceWarn.IsPositive() {
		varianceWarn = defaultVarianceWarn
	}
	return &Service{
		store:        store,
		varianceWarn: varianceWarn,
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
}

func (s *Service) OpenSession(ctx context.Context, registerName, cashierID string, openingFloat decimal.Decimal) (*models.RegisterSession, error) {
	if registerName == "" || cashierID == "" {
		return nil, fmt.Errorf("%w: register name and cashier id required", ErrValidation)
	}
	if openingFloat.IsNegative() {
		return nil, fmt.Errorf("%w: opening float must not be negative", ErrValidation)
	}

	session := &models.RegisterSession{
		ID:           s.newID(),
		RegisterName: registerName,
		CashierID:    cashierID,
		OpeningFloat: openingFloat,
		Status:       models.SessionStatusOpen,
		OpenedAt:     s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*models.RegisterSession, error) {
	return s.store.GetSession(ctx, id)
}

// RecordMovement appends a drawer event. Amounts are always recorded
// positive; the movement type decides the sign when the drawer is balanced.
func (s *Service) RecordMovement(ctx context.Context, sessionID string, movementType models.MovementType, amount decimal.Decimal, reference *string) (*models.CashMovement, error) {
	if !movementType.Valid() {
		return nil, fmt.Errorf("%w: unknown movement type %q", ErrValidation, movementType)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: movement amount must be positive", ErrValidation)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusOpen {
		return nil, ErrSessionClosed
	}

	movement := &models.CashMovement{
		SessionID: sessionID,
		Type:      movementType,
		Amount:    amount,
		Reference: reference,
		CreatedAt: s.now(),
	}
	if err := s.store.AppendMovement(ctx, movement); err != nil {
		return nil, err
	}
	return movement, nil
}

// ExpectedCash is the opening float plus all signed movements.
func ExpectedCash(session *models.RegisterSession) decimal.Decimal {
	expected := session.OpeningFloat
	for _, m := range session.Movements {
		switch m.Type {
		case models.MovementTypeSale, models.MovementTypePaidIn:
			expected = expected.Add(m.Amount)
		case models.MovementTypeRefund, models.MovementTypePaidOut:
			expected = expected.Sub(m.Amount)
		}
	}
	return expected
}

// CloseSession freezes the drawer: expected cash is computed from the
// movement stream, variance is counted minus expected.
func (s *Service) CloseSession(ctx context.Context, sessionID string, countedCash decimal.Decimal) (*models.RegisterSession, error) {
	if countedCash.IsNegative() {
		return nil, fmt.Errorf("%w: counted cash must not be negative", ErrValidation)
	}

	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusOpen {
		return nil, ErrSessionClosed
	}

	expected := ExpectedCash(session)
	variance := countedCash.Sub(expected)
	closedAt := s.now()

	session.ExpectedCash = &expected
	session.CountedCash = &countedCash
	session.Variance = &variance
	session.VarianceStatus = models.VarianceOK
	if variance.Abs().GreaterThan(s.varianceWarn) {
		session.VarianceStatus = models.VarianceWarning
	}
	session.Status = models.SessionStatusClosed
	session.ClosedAt = &closedAt

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
