package register

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"tillpoint/internal/database/models"
)

// GormStore persists sessions in postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

func (s *GormStore) CreateSession(ctx context.Context, session *models.RegisterSession) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *GormStore) GetSession(ctx context.Context, id string) (*models.RegisterSession, error) {
	var session models.RegisterSession
	err := s.db.WithContext(ctx).
		Preload("Movements").
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *GormStore) UpdateSession(ctx context.Context, session *models.RegisterSession) error {
	return s.db.WithContext(ctx).Save(session).Error
}

func (s *GormStore) AppendMovement(ctx context.Context, m *models.CashMovement) error {
	return s.db.WithContext(ctx).Create(m).Error
}

// MemoryStore backs the test suite and standalone mode.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.RegisterSession
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.RegisterSession), nextID: 1}
}

var _ Store = (*MemoryStore)(nil)

func copySession(s models.RegisterSession) models.RegisterSession {
	cp := s
	cp.Movements = make([]models.CashMovement, len(s.Movements))
	copy(cp.Movements, s.Movements)
	if s.ExpectedCash != nil {
		v := *s.ExpectedCash
		cp.ExpectedCash = &v
	}
	if s.CountedCash != nil {
		v := *s.CountedCash
		cp.CountedCash = &v
	}
	if s.Variance != nil {
		v := *s.Variance
		cp.Variance = &v
	}
	if s.ClosedAt != nil {
		v := *s.ClosedAt
		cp.ClosedAt = &v
	}
	return cp
}

func (m *MemoryStore) CreateSession(ctx context.Context, session *models.RegisterSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = copySession(*session)
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id string) (*models.RegisterSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := copySession(session)
	return &cp, nil
}

func (m *MemoryStore) UpdateSession(ctx context.Context, session *models.RegisterSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return ErrNotFound
	}
	m.sessions[session.ID] = copySession(*session)
	return nil
}

func (m *MemoryStore) AppendMovement(ctx context.Context, movement *models.CashMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[movement.SessionID]
	if !ok {
		return ErrNotFound
	}
	movement.ID = m.nextID
	m.nextID++
	session.Movements = append(session.Movements, *movement)
	m.sessions[movement.SessionID] = session
	return nil
}
