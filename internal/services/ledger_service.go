package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fobos-app/ledger/internal/metrics"
	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
	"github.com/fobos-app/ledger/internal/status"
	"github.com/fobos-app/ledger/internal/validate"
)

// LedgerService mirrors every ledger entry mutation with exactly one
// adjustment of the owning account's cached balance and watermark.
//
// The entry write and the account write are separate store calls. A failed
// entry write leaves the account untouched; a failed account write after a
// successful entry write is reported as *ConsistencyError and the entry write
// is not undone.
type LedgerService struct {
	entries  repo.Entries
	accounts repo.Accounts
	notify   notifier
	rec      *reconciler
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*LedgerService)

func WithAdjustPolicy(p AdjustPolicy) Option {
	return func(s *LedgerService) { s.rec.policy = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *LedgerService) { s.log = l; s.rec.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(e repo.Entries, a repo.Accounts, relay status.Relay, opts ...Option) *LedgerService {
	s := &LedgerService{
		entries:  e,
		accounts: a,
		notify:   newNotifier(relay, status.ScopeTransactions),
		rec:      &reconciler{accounts: a, policy: DefaultAdjustPolicy, log: slog.Default()},
		log:      slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Result struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

// EntryInput carries the writable fields of an entry. On update an empty
// AccountID keeps the entry on its current account and a nil CategoryID
// keeps its category. DateText (YYYY-MM-DD) is used when Date is zero.
type EntryInput struct {
	AccountID   string
	Kind        models.EntryKind
	AmountCents int64
	Date        time.Time
	DateText    string
	Title       string
	CategoryID  *string
	Note        *string
}

// resolveDate returns the calendar day of t, or of text when t is zero.
func resolveDate(t time.Time, text string) (time.Time, *validate.ErrField) {
	if !t.IsZero() {
		return models.DayOf(t), nil
	}
	if strings.TrimSpace(text) == "" {
		return time.Time{}, &validate.ErrField{Field: "date", Msg: "required"}
	}
	d, err := models.ParseDate(text)
	if err != nil {
		return time.Time{}, &validate.ErrField{Field: "date", Msg: "must be YYYY-MM-DD"}
	}
	return d, nil
}

// prepare trims and resolves the input and reports every invalid field.
func (in EntryInput) prepare(requireAccount bool) (EntryInput, validate.Errs) {
	in.AccountID = strings.TrimSpace(in.AccountID)
	in.Title = strings.TrimSpace(in.Title)
	if in.CategoryID != nil && strings.TrimSpace(*in.CategoryID) == "" {
		in.CategoryID = nil
	}

	var errs validate.Errs
	if requireAccount {
		errs.Add(validate.Required("account_id", in.AccountID))
	}
	var dateErr *validate.ErrField
	in.Date, dateErr = resolveDate(in.Date, in.DateText)
	errs.Add(
		validate.OneOf("kind", string(in.Kind), string(models.EntryCredit), string(models.EntryDebit)),
		validate.MinInt("amount_cents", in.AmountCents, 1),
		validate.Required("title", in.Title),
		dateErr,
	)
	return in, errs
}

func (s *LedgerService) adjustment(accountID string, delta int64, advanceTo *time.Time) Adjustment {
	return Adjustment{ID: s.newID(), AccountID: accountID, Delta: delta, AdvanceTo: advanceTo}
}

// ----------------- CREATE -----------------

func (s *LedgerService) CreateEntry(ctx context.Context, in EntryInput) (Result, error) {
	res, err := s.createEntry(ctx, in)
	s.finish(ctx, status.ActionUpsert, "Transaction created", "Transaction save failed", err)
	return res, err
}

func (s *LedgerService) createEntry(ctx context.Context, in EntryInput) (Result, error) {
	in, errs := in.prepare(true)
	if len(errs) > 0 {
		return Result{}, &ValidationError{Fields: errs}
	}
	if err := s.requireAccount(ctx, in.AccountID); err != nil {
		return Result{}, err
	}

	now := s.now()
	e := models.Entry{
		ID:          s.newID(),
		AccountID:   in.AccountID,
		Kind:        in.Kind,
		AmountCents: in.AmountCents,
		Date:        in.Date,
		Title:       in.Title,
		CategoryID:  in.CategoryID,
		Note:        in.Note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.entries.Put(ctx, e); err != nil {
		return Result{}, &StoreError{Op: "put entry", Err: err}
	}

	adj := s.adjustment(e.AccountID, e.Signed(), &e.Date)
	if err := s.rec.applyAll(ctx, []string{e.ID}, []Adjustment{adj}); err != nil {
		return Result{ID: e.ID}, err
	}
	return Result{OK: true, ID: e.ID}, nil
}

// ----------------- UPDATE -----------------

func (s *LedgerService) UpdateEntry(ctx context.Context, id string, in EntryInput) (Result, error) {
	res, err := s.updateEntry(ctx, id, in)
	s.finish(ctx, status.ActionUpsert, "Transaction updated", "Transaction save failed", err)
	return res, err
}

func (s *LedgerService) updateEntry(ctx context.Context, id string, in EntryInput) (Result, error) {
	in, errs := in.prepare(false)
	errs.Add(validate.Required("id", id))
	if len(errs) > 0 {
		return Result{}, &ValidationError{Fields: errs}
	}

	prev, err := s.entries.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return Result{}, &NotFoundError{Entity: "entry", ID: id}
	}
	if err != nil {
		return Result{}, &StoreError{Op: "get entry", Err: err}
	}

	next := prev
	if in.AccountID != "" {
		next.AccountID = in.AccountID
	}
	next.Kind = in.Kind
	next.AmountCents = in.AmountCents
	next.Date = in.Date
	next.Title = in.Title
	if in.CategoryID != nil {
		next.CategoryID = in.CategoryID
	}
	next.Note = in.Note
	next.UpdatedAt = s.now()

	moved := next.AccountID != prev.AccountID
	if moved {
		if err := s.requireAccount(ctx, next.AccountID); err != nil {
			return Result{}, err
		}
	}

	if err := s.entries.Put(ctx, next); err != nil {
		return Result{}, &StoreError{Op: "put entry", Err: err}
	}

	var adjs []Adjustment
	switch {
	case moved:
		// The old account may have been deleted since; nothing is owed to it then.
		out := s.adjustment(prev.AccountID, -prev.Signed(), nil)
		out.IfExists = true
		adjs = []Adjustment{out, s.adjustment(next.AccountID, next.Signed(), &next.Date)}
	case next.Signed() != prev.Signed():
		adjs = []Adjustment{s.adjustment(next.AccountID, next.Signed()-prev.Signed(), &next.Date)}
	}
	if err := s.rec.applyAll(ctx, []string{next.ID}, adjs); err != nil {
		return Result{ID: next.ID}, err
	}
	return Result{OK: true, ID: next.ID}, nil
}

// ----------------- DELETE -----------------

// DeleteEntry removes an entry and takes its amount back out of the account.
// Deleting an unknown id succeeds without touching any account. The
// watermark is left where it is.
func (s *LedgerService) DeleteEntry(ctx context.Context, id string) (Result, error) {
	res, err := s.deleteEntry(ctx, id)
	s.finish(ctx, status.ActionDelete, "Transaction deleted", "Transaction deletion failed", err)
	return res, err
}

func (s *LedgerService) deleteEntry(ctx context.Context, id string) (Result, error) {
	prev, err := s.entries.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return Result{OK: true, ID: id}, nil
	}
	if err != nil {
		return Result{}, &StoreError{Op: "get entry", Err: err}
	}

	if err := s.entries.Delete(ctx, id); err != nil {
		return Result{}, &StoreError{Op: "delete entry", Err: err}
	}

	adj := s.adjustment(prev.AccountID, -prev.Signed(), nil)
	adj.IfExists = true
	if err := s.rec.applyAll(ctx, []string{id}, []Adjustment{adj}); err != nil {
		return Result{ID: id}, err
	}
	return Result{OK: true, ID: id}, nil
}

// ----------------- RECOVERY -----------------

// RetryAdjustments applies the adjustments a ConsistencyError reported as
// still owed. The store skips adjustment ids it has already applied, so
// replaying the same error is safe. On a further failure the returned
// ConsistencyError lists what remains.
func (s *LedgerService) RetryAdjustments(ctx context.Context, cerr *ConsistencyError) error {
	if cerr == nil || len(cerr.Pending) == 0 {
		return nil
	}
	var err error
	var errs validate.Errs
	for i, p := range cerr.Pending {
		prefix := fmt.Sprintf("pending[%d].", i)
		errs.Add(validate.Required(prefix+"id", p.ID), validate.Required(prefix+"account_id", p.AccountID))
	}
	if len(errs) > 0 {
		err = &ValidationError{Fields: errs}
	} else {
		err = s.rec.applyAll(ctx, cerr.EntryIDs, cerr.Pending)
	}
	s.notify.done(ctx, status.ActionReconcile, "Account balance reconciled", "Account reconciliation failed", err)
	return err
}

// ----------------- Queries -----------------

func (s *LedgerService) GetEntry(ctx context.Context, id string) (models.Entry, error) {
	e, err := s.entries.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Entry{}, &NotFoundError{Entity: "entry", ID: id}
	}
	if err != nil {
		return models.Entry{}, &StoreError{Op: "get entry", Err: err}
	}
	return e, nil
}

// ListEntries lists entries newest first; an empty accountID lists all.
func (s *LedgerService) ListEntries(ctx context.Context, accountID string, limit, offset int) ([]models.Entry, error) {
	out, err := s.entries.List(ctx, accountID, max(limit, 0), max(offset, 0))
	if err != nil {
		err = &StoreError{Op: "list entries", Err: err}
	}
	s.notify.done(ctx, status.ActionList, "", "Transactions listing failed", err)
	return out, err
}

// ----------------- Helpers -----------------

func (s *LedgerService) requireAccount(ctx context.Context, id string) error {
	_, err := s.accounts.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return &NotFoundError{Entity: "account", ID: id}
	}
	if err != nil {
		return &StoreError{Op: "get account", Err: err}
	}
	return nil
}

func (s *LedgerService) finish(ctx context.Context, action status.Action, okMsg, failMsg string, err error) {
	state := status.StateSuccess
	if err != nil {
		state = status.StateError
	}
	metrics.MutationsTotal.WithLabelValues(string(action), string(state)).Inc()
	s.notify.done(ctx, action, okMsg, failMsg, err)
}
