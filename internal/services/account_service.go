package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
	"github.com/fobos-app/ledger/internal/status"
	"github.com/fobos-app/ledger/internal/validate"
)

type AccountService struct {
	r      repo.Accounts
	notify notifier
	now    func() time.Time
}

func NewAccountService(r repo.Accounts, relay status.Relay) *AccountService {
	return &AccountService{r: r, notify: newNotifier(relay, status.ScopeAccounts), now: time.Now}
}

// AccountInput is a manual account edit. Balance is in major currency units.
type AccountInput struct {
	ID          string
	Name        string
	ColorHex    string
	Description *string
	Balance     decimal.Decimal
}

// ToCents converts a major-unit amount to minor units, rounding half away
// from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents renders minor units as a major-unit decimal.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

// Upsert creates or edits an account. The balance given here is
// authoritative: whenever it differs from the stored one (or the account is
// new) the watermark is reset to now.
func (s *AccountService) Upsert(ctx context.Context, in AccountInput) (Result, error) {
	isNew := strings.TrimSpace(in.ID) == ""
	okMsg := "Account updated"
	if isNew {
		okMsg = "Account created"
	}
	res, err := s.upsert(ctx, in)
	s.notify.done(ctx, status.ActionUpsert, okMsg, "Account save failed", err)
	return res, err
}

func (s *AccountService) upsert(ctx context.Context, in AccountInput) (Result, error) {
	var errs validate.Errs
	errs.Add(validate.Required("name", in.Name))
	if len(errs) > 0 {
		return Result{}, &ValidationError{Fields: errs}
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now()
	cents := ToCents(in.Balance)

	prev, err := s.r.Get(ctx, id)
	found := err == nil
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return Result{}, &StoreError{Op: "get account", Err: err}
	}

	a := models.Account{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		ColorHex:     strings.TrimSpace(in.ColorHex),
		BalanceCents: cents,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		a.Description = &d
	}
	if found {
		a.CreatedAt = prev.CreatedAt
		a.Watermark = prev.Watermark
	}
	if !found || prev.BalanceCents != cents {
		a.Watermark = &now
	}

	if _, err := s.r.Save(ctx, a); err != nil {
		return Result{}, &StoreError{Op: "save account", Err: err}
	}
	return Result{OK: true, ID: id}, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (models.Account, error) {
	a, err := s.r.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Account{}, &NotFoundError{Entity: "account", ID: id}
	}
	if err != nil {
		return models.Account{}, &StoreError{Op: "get account", Err: err}
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	out, err := s.r.List(ctx)
	if err != nil {
		err = &StoreError{Op: "list accounts", Err: err}
	}
	s.notify.done(ctx, status.ActionList, "", "Accounts listing failed", err)
	return out, err
}

func (s *AccountService) Delete(ctx context.Context, id string) (Result, error) {
	err := s.r.Delete(ctx, id)
	if err != nil {
		err = &StoreError{Op: "delete account", Err: err}
	}
	s.notify.done(ctx, status.ActionDelete, "Account deleted", "Account deletion failed", err)
	if err != nil {
		return Result{}, err
	}
	return Result{OK: true, ID: id}, nil
}
