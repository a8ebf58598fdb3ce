package store

import (
	"context"
	"sync"

	"reitvest/internal/investor/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
)

// InMemory keeps investor records in a map. Reads hand out clones so callers
// can never mutate live state outside Execute.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.InvestorID]*models.Investor
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.InvestorID]*models.Investor)}
}

func (s *InMemory) Create(ctx context.Context, inv *models.Investor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[inv.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[inv.ID] = inv.Clone()
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, investorID id.InvestorID) (*models.Investor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.records[investorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return inv.Clone(), nil
}

func (s *InMemory) Execute(ctx context.Context, investorID id.InvestorID,
	validate func(*models.Investor) error,
	apply func(*models.Investor)) (*models.Investor, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.records[investorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	staged := inv.Clone()
	if err := validate(staged); err != nil {
		return nil, err
	}
	apply(staged)
	s.records[investorID] = staged
	return staged.Clone(), nil
}

func (s *InMemory) Delete(ctx context.Context, investorID id.InvestorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[investorID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, investorID)
	return nil
}
