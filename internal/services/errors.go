package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fobos-app/ledger/internal/validate"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrStore       = errors.New("store failure")
	ErrConsistency = errors.New("ledger and balance out of sync")
)

// ValidationError reports malformed input. Nothing has been written.
type ValidationError struct {
	Fields validate.Errs
}

func (e *ValidationError) Error() string        { return "validation failed: " + e.Fields.Error() }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing entry or account that had to exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string        { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StoreError wraps an I/O failure of a store on the first write (or read) of
// an operation. Nothing was left half-applied.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string        { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error        { return e.Err }
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Adjustment is a balance change owed to an account. ID makes it
// idempotent: an account store applies a given id at most once, so a
// pending adjustment can be replayed safely.
type Adjustment struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Delta     int64  `json:"delta_cents"`
	// AdvanceTo is the date the watermark may move forward to; nil leaves it.
	AdvanceTo *time.Time `json:"advance_to,omitempty"`
	// IfExists skips the adjustment when the account no longer exists.
	IfExists bool `json:"if_exists,omitempty"`
}

// ConsistencyError means the entry write succeeded but the paired account
// adjustment did not. Pending lists the adjustments still owed; pass the
// error to RetryAdjustments to apply them.
type ConsistencyError struct {
	EntryIDs []string
	Pending  []Adjustment
	Err      error
}

func (e *ConsistencyError) Error() string {
	ids := make([]string, 0, len(e.Pending))
	for _, p := range e.Pending {
		ids = append(ids, p.AccountID)
	}
	return fmt.Sprintf("entries %s written but adjustment of account %s failed: %v",
		strings.Join(e.EntryIDs, ","), strings.Join(ids, ","), e.Err)
}
func (e *ConsistencyError) Unwrap() error        { return e.Err }
func (e *ConsistencyError) Is(target error) bool { return target == ErrConsistency }
