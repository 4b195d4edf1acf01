package memory

import (
	"context"
	"sync"

	"github.com/fobos-app/ledger/internal/models"
	"github.com/fobos-app/ledger/internal/repository"
)

type AuditLogs struct {
	mu   sync.Mutex
	rows []models.AuditLog
}

func NewAuditLogs() *AuditLogs { return &AuditLogs{} }

func (s *AuditLogs) Create(_ context.Context, l models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, l)
	return nil
}

// All returns a copy of the recorded logs.
func (s *AuditLogs) All() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditLog, len(s.rows))
	copy(out, s.rows)
	return out
}

var _ repository.AuditLogs = (*AuditLogs)(nil)
