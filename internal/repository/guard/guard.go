// Package guard wraps stores in circuit breakers so a failing database is
// reported fast instead of piling up requests behind it.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	cb "github.com/sony/gobreaker"

	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
)

type Settings struct {
	// Failures is the number of consecutive failures that opens the breaker.
	Failures uint32
	Timeout  time.Duration
	Log      *slog.Logger
}

func newBreaker(name string, s Settings) *cb.CircuitBreaker {
	if s.Failures == 0 {
		s.Failures = 5
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}
	st := cb.Settings{Name: name}
	st.Interval = 60 * time.Second
	st.Timeout = s.Timeout
	st.ReadyToTrip = func(counts cb.Counts) bool {
		return counts.ConsecutiveFailures >= s.Failures
	}
	// Absence and version conflicts are answers, not outages.
	st.IsSuccessful = func(err error) bool {
		return err == nil ||
			errors.Is(err, repo.ErrNotFound) ||
			errors.Is(err, repo.ErrVersionConflict) ||
			errors.Is(err, repo.ErrAlreadyApplied)
	}
	st.OnStateChange = func(name string, from, to cb.State) {
		s.Log.Warn("store breaker state change", "store", name, "from", from.String(), "to", to.String())
	}
	return cb.NewCircuitBreaker(st)
}

func run[T any](b *cb.CircuitBreaker, fn func() (T, error)) (T, error) {
	v, err := b.Execute(func() (any, error) { return fn() })
	if v == nil {
		var zero T
		return zero, err
	}
	return v.(T), err
}

func exec(b *cb.CircuitBreaker, fn func() error) error {
	_, err := b.Execute(func() (any, error) { return nil, fn() })
	return err
}

// Wrap guards the accounts, entries and categories stores with one breaker
// each. Audit logs are left as they are.
func Wrap(r repo.Repositories, s Settings) repo.Repositories {
	return repo.Repositories{
		Accounts:   &Accounts{next: r.Accounts, b: newBreaker("accounts", s)},
		Entries:    &Entries{next: r.Entries, b: newBreaker("entries", s)},
		Categories: &Categories{next: r.Categories, b: newBreaker("categories", s)},
		AuditLogs:  r.AuditLogs,
	}
}

type Accounts struct {
	next repo.Accounts
	b    *cb.CircuitBreaker
}

func (g *Accounts) Get(ctx context.Context, id string) (models.Account, error) {
	return run(g.b, func() (models.Account, error) { return g.next.Get(ctx, id) })
}

func (g *Accounts) Update(ctx context.Context, id string, p models.AccountPatch) (models.Account, error) {
	return run(g.b, func() (models.Account, error) { return g.next.Update(ctx, id, p) })
}

func (g *Accounts) Save(ctx context.Context, a models.Account) (models.Account, error) {
	return run(g.b, func() (models.Account, error) { return g.next.Save(ctx, a) })
}

func (g *Accounts) List(ctx context.Context) ([]models.Account, error) {
	return run(g.b, func() ([]models.Account, error) { return g.next.List(ctx) })
}

func (g *Accounts) Delete(ctx context.Context, id string) error {
	return exec(g.b, func() error { return g.next.Delete(ctx, id) })
}

type Entries struct {
	next repo.Entries
	b    *cb.CircuitBreaker
}

func (g *Entries) Get(ctx context.Context, id string) (models.Entry, error) {
	return run(g.b, func() (models.Entry, error) { return g.next.Get(ctx, id) })
}

func (g *Entries) Put(ctx context.Context, e models.Entry) error {
	return exec(g.b, func() error { return g.next.Put(ctx, e) })
}

func (g *Entries) Delete(ctx context.Context, id string) error {
	return exec(g.b, func() error { return g.next.Delete(ctx, id) })
}

func (g *Entries) PutMany(ctx context.Context, es []models.Entry) error {
	return exec(g.b, func() error { return g.next.PutMany(ctx, es) })
}

func (g *Entries) List(ctx context.Context, accountID string, limit, offset int) ([]models.Entry, error) {
	return run(g.b, func() ([]models.Entry, error) { return g.next.List(ctx, accountID, limit, offset) })
}

type Categories struct {
	next repo.Categories
	b    *cb.CircuitBreaker
}

func (g *Categories) Get(ctx context.Context, id string) (models.Category, error) {
	return run(g.b, func() (models.Category, error) { return g.next.Get(ctx, id) })
}

func (g *Categories) Save(ctx context.Context, c models.Category) (models.Category, error) {
	return run(g.b, func() (models.Category, error) { return g.next.Save(ctx, c) })
}

func (g *Categories) List(ctx context.Context) ([]models.Category, error) {
	return run(g.b, func() ([]models.Category, error) { return g.next.List(ctx) })
}

func (g *Categories) Delete(ctx context.Context, id string) error {
	return exec(g.b, func() error { return g.next.Delete(ctx, id) })
}

var (
	_ repo.Accounts   = (*Accounts)(nil)
	_ repo.Entries    = (*Entries)(nil)
	_ repo.Categories = (*Categories)(nil)
)
