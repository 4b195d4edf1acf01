package status

import (
	"context"
	"log/slog"

	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
)

// AuditRelay persists events to the audit log.
type AuditRelay struct {
	logs repo.AuditLogs
	log  *slog.Logger
}

func NewAuditRelay(l repo.AuditLogs, log *slog.Logger) *AuditRelay {
	return &AuditRelay{logs: l, log: log}
}

func (r *AuditRelay) Publish(ctx context.Context, ev Event) {
	entry := models.AuditLog{
		ID:         ev.ID,
		EntityType: string(ev.Scope),
		Action:     string(ev.Action),
		Details: map[string]any{
			"state":   string(ev.State),
			"message": ev.Message,
		},
		CreatedAt: ev.TS,
	}
	if err := r.logs.Create(ctx, entry); err != nil {
		r.log.Error("audit log write", "err", err, "event_id", ev.ID)
	}
}
