package repository

import (
	"context"
	"errors"

	"github.com/fobos-app/ledger/internal/models"
)

var (
	// ErrNotFound is returned by Get/Update when the row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by Accounts.Update when IfVersion does not
	// match the stored version.
	ErrVersionConflict = errors.New("version conflict")
	// ErrAlreadyApplied is returned by Accounts.Update when the patch's
	// AdjustmentID was already recorded. Nothing was written.
	ErrAlreadyApplied = errors.New("adjustment already applied")
)

// Entries stores ledger entries. Not transactional with Accounts.
type Entries interface {
	Get(ctx context.Context, id string) (models.Entry, error)
	Put(ctx context.Context, e models.Entry) error
	Delete(ctx context.Context, id string) error
	PutMany(ctx context.Context, es []models.Entry) error

	// List orders by date desc, created_at desc. Empty accountID lists all accounts.
	List(ctx context.Context, accountID string, limit, offset int) ([]models.Entry, error)
}

type Accounts interface {
	Get(ctx context.Context, id string) (models.Account, error)
	Update(ctx context.Context, id string, p models.AccountPatch) (models.Account, error)

	// Save inserts or fully replaces an account row and bumps its version.
	Save(ctx context.Context, a models.Account) (models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	Delete(ctx context.Context, id string) error
}

type Categories interface {
	Get(ctx context.Context, id string) (models.Category, error)
	Save(ctx context.Context, c models.Category) (models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Delete(ctx context.Context, id string) error
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

// Repositories bundles the stores a service process needs.
type Repositories struct {
	Accounts   Accounts
	Entries    Entries
	Categories Categories
	AuditLogs  AuditLogs
}
