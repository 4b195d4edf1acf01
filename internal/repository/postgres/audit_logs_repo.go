package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fobos-app/ledger/internal/models"
)

type auditLogsRepo struct{ db DBTX }

func (r *auditLogsRepo) Create(ctx context.Context, l models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_logs(id, entity_type, entity_id, action, details, created_at)
		 VALUES($1,$2,$3,$4,$5,COALESCE($6, now()))`,
		l.ID, l.EntityType, l.EntityID, l.Action, l.Details, nullTime(l.CreatedAt),
	)
	return err
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
