package store

import (
	"context"
	"sort"
	"sync"

	"reitvest/internal/investment/models"
	id "reitvest/pkg/domain"
	"reitvest/pkg/platform/sentinel"
)

// InMemory keeps investment records in a map. Reads hand out clones so
// callers can never mutate live state outside Execute.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.InvestmentID]*models.Investment
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.InvestmentID]*models.Investment)}
}

func (s *InMemory) Create(ctx context.Context, i *models.Investment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[i.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[i.ID] = i.Clone()
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, investmentID id.InvestmentID) (*models.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.records[investmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return i.Clone(), nil
}

func (s *InMemory) ListByFundraiser(ctx context.Context, fundraiserID id.FundraiserID) ([]*models.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Investment
	for _, i := range s.records {
		if i.Fundraiser == fundraiserID {
			out = append(out, i.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) ListByInvestor(ctx context.Context, investorID id.InvestorID) ([]*models.Investment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Investment
	for _, i := range s.records {
		if i.Investor == investorID {
			out = append(out, i.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) CountOpenByInvestor(ctx context.Context, investorID id.InvestorID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, i := range s.records {
		if i.Investor == investorID && i.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) Execute(ctx context.Context, investmentID id.InvestmentID,
	validate func(*models.Investment) error,
	apply func(*models.Investment)) (*models.Investment, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.records[investmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	staged := i.Clone()
	if err := validate(staged); err != nil {
		return nil, err
	}
	apply(staged)
	s.records[investmentID] = staged
	return staged.Clone(), nil
}

func sortByCreation(list []*models.Investment) {
	sort.Slice(list, func(a, b int) bool {
		if list[a].CreatedAt.Equal(list[b].CreatedAt) {
			return list[a].Sequence < list[b].Sequence
		}
		return list[a].CreatedAt.Before(list[b].CreatedAt)
	})
}
