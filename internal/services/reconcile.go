package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fobos-app/ledger/internal/metrics"
	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
)

// AdjustPolicy bounds the account adjustment unit of work. Only version
// conflicts are retried: a conflict proves nothing was written. Any other
// account write error ends the cycle with a ConsistencyError. Attempts of 1
// disables automatic retries.
type AdjustPolicy struct {
	Attempts int
	Backoff  time.Duration
}

var DefaultAdjustPolicy = AdjustPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

const maxBackoff = 2 * time.Second

// reconciler applies balance adjustments with a read, compute, conditional
// write cycle keyed on the account version. Each write carries the
// adjustment id so the store applies a given adjustment at most once.
type reconciler struct {
	accounts repo.Accounts
	policy   AdjustPolicy
	log      *slog.Logger
}

// advanceWatermark returns the new watermark, or nil when it must stay put.
// The watermark only moves forward.
func advanceWatermark(current, candidate *time.Time) *time.Time {
	if candidate == nil {
		return nil
	}
	if current == nil || current.Before(*candidate) {
		c := *candidate
		return &c
	}
	return nil
}

func (r *reconciler) newBackOff(ctx context.Context) backoff.BackOff {
	// WithMaxRetries treats 0 as unlimited.
	if r.policy.Attempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.policy.Backoff
	eb.MaxInterval = maxBackoff
	eb.MaxElapsedTime = 0
	eb.Multiplier = 2
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.policy.Attempts-1)), ctx)
}

func (r *reconciler) applyOnce(ctx context.Context, adj Adjustment) error {
	acc, err := r.accounts.Get(ctx, adj.AccountID)
	if err != nil {
		return err
	}
	balance := acc.BalanceCents + adj.Delta
	version := acc.Version
	patch := models.AccountPatch{
		BalanceCents: &balance,
		Watermark:    advanceWatermark(acc.Watermark, adj.AdvanceTo),
		IfVersion:    &version,
		AdjustmentID: adj.ID,
	}
	_, err = r.accounts.Update(ctx, adj.AccountID, patch)
	if errors.Is(err, repo.ErrAlreadyApplied) {
		r.log.Info("adjustment already applied", "adjustment_id", adj.ID, "account_id", adj.AccountID)
		return nil
	}
	if err != nil {
		return err
	}
	metrics.BalanceAdjustments.Inc()
	return nil
}

func (r *reconciler) apply(ctx context.Context, adj Adjustment) error {
	op := func() error {
		err := r.applyOnce(ctx, adj)
		if err == nil || errors.Is(err, repo.ErrVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		metrics.AdjustmentRetries.Inc()
		r.log.Warn("balance adjustment conflict, retrying",
			"account_id", adj.AccountID, "delta", adj.Delta, "wait", wait, "err", err)
	}
	return backoff.RetryNotify(op, r.newBackOff(ctx), notify)
}

// applyAll applies adjs in order after the entry write has succeeded. Any
// failure becomes a ConsistencyError listing the adjustments still owed.
// An adjustment marked IfExists is skipped when its account is gone.
func (r *reconciler) applyAll(ctx context.Context, entryIDs []string, adjs []Adjustment) error {
	for i, adj := range adjs {
		err := r.apply(ctx, adj)
		if err == nil {
			continue
		}
		if errors.Is(err, repo.ErrNotFound) {
			if adj.IfExists {
				r.log.Info("account gone, nothing to adjust", "account_id", adj.AccountID)
				continue
			}
			err = &NotFoundError{Entity: "account", ID: adj.AccountID}
		}
		metrics.ConsistencyErrors.Inc()
		r.log.Error("balance adjustment failed after entry write",
			"account_id", adj.AccountID, "delta", adj.Delta, "entries", entryIDs, "err", err)
		return &ConsistencyError{EntryIDs: entryIDs, Pending: adjs[i:], Err: err}
	}
	return nil
}
