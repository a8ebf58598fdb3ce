package store

import (
	"context"
	"sync"

	"reitvest/internal/fundraiser/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
)

// InMemory keeps fundraiser aggregates in a map. Reads hand out clones so
// callers can never mutate live state outside Execute.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.FundraiserID]*models.Fundraiser
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.FundraiserID]*models.Fundraiser)}
}

func (s *InMemory) Create(ctx context.Context, f *models.Fundraiser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[f.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[f.ID] = f.Clone()
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, fundraiserID id.FundraiserID) (*models.Fundraiser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.records[fundraiserID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return f.Clone(), nil
}

func (s *InMemory) Execute(ctx context.Context, fundraiserID id.FundraiserID,
	validate func(*models.Fundraiser) error,
	apply func(*models.Fundraiser)) (*models.Fundraiser, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.records[fundraiserID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	// Validate against a clone; only a clean validation touches the record.
	staged := f.Clone()
	if err := validate(staged); err != nil {
		return nil, err
	}
	apply(staged)
	s.records[fundraiserID] = staged
	return staged.Clone(), nil
}
