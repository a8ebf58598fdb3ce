package store

import (
	"context"
	"sync"

	"reitvest/internal/identity/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
)

// InMemory keeps accounts in a map.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.Principal]*models.Account
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.Principal]*models.Account)}
}

func (s *InMemory) Create(ctx context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[a.Principal]; exists {
		return sentinel.ErrConflict
	}
	s.records[a.Principal] = a.Clone()
	return nil
}

func (s *InMemory) FindByPrincipal(ctx context.Context, principal id.Principal) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.records[principal]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}
