package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fobos-app/ledger/internal/models"
	"github.com/fobos-app/ledger/internal/repository"
)

// Entries is an in-memory repository.Entries safe for concurrent use.
type Entries struct {
	mu   sync.RWMutex
	rows map[string]models.Entry
}

func NewEntries() *Entries {
	return &Entries{rows: make(map[string]models.Entry)}
}

func (s *Entries) Get(_ context.Context, id string) (models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rows[id]
	if !ok {
		return models.Entry{}, repository.ErrNotFound
	}
	return e, nil
}

func (s *Entries) Put(_ context.Context, e models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[e.ID] = e
	return nil
}

func (s *Entries) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *Entries) PutMany(_ context.Context, es []models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range es {
		s.rows[e.ID] = e
	}
	return nil
}

func (s *Entries) List(_ context.Context, accountID string, limit, offset int) ([]models.Entry, error) {
	s.mu.RLock()
	out := make([]models.Entry, 0, len(s.rows))
	for _, e := range s.rows {
		if accountID == "" || e.AccountID == accountID {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func page[T any](rows []T, limit, offset int) []T {
	offset = max(offset, 0)
	if offset >= len(rows) {
		return []T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

var _ repository.Entries = (*Entries)(nil)
