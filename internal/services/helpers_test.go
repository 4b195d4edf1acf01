package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fobos-app/ledger/internal/models"
	"github.com/fobos-app/ledger/internal/repository/memory"
	"github.com/fobos-app/ledger/internal/status"
)

var errBoom = errors.New("boom")

// countingAccounts counts account writes and can be told to fail them.
// lostAcks makes the next writes commit and still report errBoom, like a
// connection dropped after the server committed.
type countingAccounts struct {
	*memory.Accounts
	mu        sync.Mutex
	updates   int
	updateErr error
	failTimes int // <0 fails forever
	lostAcks  int
}

func (c *countingAccounts) Update(ctx context.Context, id string, p models.AccountPatch) (models.Account, error) {
	c.mu.Lock()
	c.updates++
	if c.updateErr != nil && c.failTimes != 0 {
		if c.failTimes > 0 {
			c.failTimes--
		}
		err := c.updateErr
		c.mu.Unlock()
		return models.Account{}, err
	}
	lost := c.lostAcks > 0
	if lost {
		c.lostAcks--
	}
	c.mu.Unlock()
	a, err := c.Accounts.Update(ctx, id, p)
	if lost && err == nil {
		return models.Account{}, errBoom
	}
	return a, err
}

func (c *countingAccounts) loseAcks(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lostAcks = n
}

func (c *countingAccounts) failUpdates(err error, times int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateErr, c.failTimes = err, times
}

func (c *countingAccounts) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

type flakyEntries struct {
	*memory.Entries
	putErr       error
	putManyErr   error
	deleteErr    error
	putManyCalls int
}

func (f *flakyEntries) Put(ctx context.Context, e models.Entry) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Entries.Put(ctx, e)
}

func (f *flakyEntries) PutMany(ctx context.Context, es []models.Entry) error {
	f.putManyCalls++
	if f.putManyErr != nil {
		return f.putManyErr
	}
	return f.Entries.PutMany(ctx, es)
}

func (f *flakyEntries) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Entries.Delete(ctx, id)
}

type fixture struct {
	svc      *LedgerService
	entries  *flakyEntries
	accounts *countingAccounts
	relay    *status.ChanRelay
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		entries:  &flakyEntries{Entries: memory.NewEntries()},
		accounts: &countingAccounts{Accounts: memory.NewAccounts()},
		relay:    status.NewChanRelay(256),
	}
	opts = append([]Option{WithAdjustPolicy(AdjustPolicy{Attempts: 1})}, opts...)
	f.svc = NewLedgerService(f.entries, f.accounts, f.relay, opts...)
	return f
}

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) seedAccount(t *testing.T, id string, balance int64, watermark string) {
	t.Helper()
	a := models.Account{ID: id, Name: id, BalanceCents: balance}
	if watermark != "" {
		wm := day(watermark)
		a.Watermark = &wm
	}
	_, err := f.accounts.Save(context.Background(), a)
	require.NoError(t, err)
}

func (f *fixture) account(t *testing.T, id string) models.Account {
	t.Helper()
	a, err := f.accounts.Get(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (f *fixture) events() []status.Event {
	var out []status.Event
	for {
		select {
		case ev := <-f.relay.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func entryIn(account string, kind models.EntryKind, amount int64, date string) EntryInput {
	return EntryInput{
		AccountID:   account,
		Kind:        kind,
		AmountCents: amount,
		Date:        day(date),
		Title:       "entry",
	}
}

func ptr[T any](v T) *T { return &v }
