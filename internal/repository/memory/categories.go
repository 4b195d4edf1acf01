package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fobos-app/ledger/internal/models"
	"github.com/fobos-app/ledger/internal/repository"
)

type Categories struct {
	mu   sync.RWMutex
	rows map[string]models.Category
}

func NewCategories() *Categories {
	return &Categories{rows: make(map[string]models.Category)}
}

func (s *Categories) Get(_ context.Context, id string) (models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[id]
	if !ok {
		return models.Category{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *Categories) Save(_ context.Context, c models.Category) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.ID] = c
	return c, nil
}

func (s *Categories) List(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	out := make([]models.Category, 0, len(s.rows))
	for _, c := range s.rows {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Categories) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

var _ repository.Categories = (*Categories)(nil)
