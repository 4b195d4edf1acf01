package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fobos-app/ledger/internal/models"
	"github.com/fobos-app/ledger/internal/repository"
)

type Accounts struct {
	mu      sync.Mutex
	rows    map[string]models.Account
	applied map[string]struct{}
	now     func() time.Time
}

func NewAccounts() *Accounts {
	return &Accounts{
		rows:    make(map[string]models.Account),
		applied: make(map[string]struct{}),
		now:     time.Now,
	}
}

func (s *Accounts) Get(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return models.Account{}, repository.ErrNotFound
	}
	return a, nil
}

func (s *Accounts) Update(_ context.Context, id string, p models.AccountPatch) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return models.Account{}, repository.ErrNotFound
	}
	if _, done := s.applied[p.AdjustmentID]; done && p.AdjustmentID != "" {
		return models.Account{}, repository.ErrAlreadyApplied
	}
	if p.IfVersion != nil && *p.IfVersion != a.Version {
		return models.Account{}, repository.ErrVersionConflict
	}
	if p.AdjustmentID != "" {
		s.applied[p.AdjustmentID] = struct{}{}
	}
	if p.BalanceCents != nil {
		a.BalanceCents = *p.BalanceCents
	}
	if p.Watermark != nil {
		wm := *p.Watermark
		a.Watermark = &wm
	}
	a.Version++
	a.UpdatedAt = s.now()
	s.rows[id] = a
	return a, nil
}

func (s *Accounts) Save(_ context.Context, a models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.rows[a.ID]; ok {
		a.Version = prev.Version + 1
	} else {
		a.Version = 1
	}
	s.rows[a.ID] = a
	return a, nil
}

func (s *Accounts) List(_ context.Context) ([]models.Account, error) {
	s.mu.Lock()
	out := make([]models.Account, 0, len(s.rows))
	for _, a := range s.rows {
		out = append(out, a)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Accounts) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

var _ repository.Accounts = (*Accounts)(nil)
