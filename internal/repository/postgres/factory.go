package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	repo "github.com/fobos-app/ledger/internal/repository"
)

// DBTX is the subset of *pgxpool.Pool the repositories use.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

func NewRepositories(db DBTX) repo.Repositories {
	return repo.Repositories{
		Accounts:   &accountsRepo{db},
		Entries:    &entriesRepo{db},
		Categories: &categoriesRepo{db},
		AuditLogs:  &auditLogsRepo{db},
	}
}
