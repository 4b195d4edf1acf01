package services

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
	"github.com/fobos-app/ledger/internal/status"
	"github.com/fobos-app/ledger/internal/validate"
)

func TestCreateEntryAppliesSignedDelta(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 1000, "2024-01-01")
	ctx := context.Background()

	res, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryDebit, 250, "2024-01-10"))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.NotEmpty(t, res.ID)

	acc := f.account(t, "acc")
	assert.Equal(t, int64(750), acc.BalanceCents)
	assert.Equal(t, 1, f.accounts.updateCount())

	e, err := f.svc.GetEntry(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-250), e.Signed())

	evs := f.events()
	require.Len(t, evs, 1)
	assert.Equal(t, status.ScopeTransactions, evs[0].Scope)
	assert.Equal(t, status.ActionUpsert, evs[0].Action)
	assert.Equal(t, status.StateSuccess, evs[0].State)
	assert.Equal(t, "Transaction created", evs[0].Message)
}

func TestWatermarkAdvancesAndNeverRollsBack(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 0, "2024-01-01")
	ctx := context.Background()

	res, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryCredit, 100, "2024-01-10"))
	require.NoError(t, err)
	require.NotNil(t, f.account(t, "acc").Watermark)
	assert.True(t, f.account(t, "acc").Watermark.Equal(day("2024-01-10")))

	// An older entry does not pull the watermark back.
	_, err = f.svc.CreateEntry(ctx, entryIn("acc", models.EntryCredit, 5, "2023-12-01"))
	require.NoError(t, err)
	assert.True(t, f.account(t, "acc").Watermark.Equal(day("2024-01-10")))

	_, err = f.svc.DeleteEntry(ctx, res.ID)
	require.NoError(t, err)
	acc := f.account(t, "acc")
	assert.True(t, acc.Watermark.Equal(day("2024-01-10")))
	assert.Equal(t, int64(5), acc.BalanceCents)
}

func TestWatermarkUnsetIsAdvanced(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 0, "")

	_, err := f.svc.CreateEntry(context.Background(), entryIn("acc", models.EntryCredit, 100, "2022-06-30"))
	require.NoError(t, err)
	wm := f.account(t, "acc").Watermark
	require.NotNil(t, wm)
	assert.True(t, wm.Equal(day("2022-06-30")))
}

func TestCreateEntryValidation(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 1000, "")
	ctx := context.Background()

	cases := map[string]EntryInput{
		"zero amount":  {AccountID: "acc", Kind: models.EntryCredit, AmountCents: 0, Date: day("2024-01-01"), Title: "x"},
		"negative":     {AccountID: "acc", Kind: models.EntryDebit, AmountCents: -5, Date: day("2024-01-01"), Title: "x"},
		"empty title":  {AccountID: "acc", Kind: models.EntryCredit, AmountCents: 5, Date: day("2024-01-01"), Title: "   "},
		"bad kind":     {AccountID: "acc", Kind: "transfer", AmountCents: 5, Date: day("2024-01-01"), Title: "x"},
		"no account":   {Kind: models.EntryCredit, AmountCents: 5, Date: day("2024-01-01"), Title: "x"},
		"missing date": {AccountID: "acc", Kind: models.EntryCredit, AmountCents: 5, Title: "x"},
		"bad date":     {AccountID: "acc", Kind: models.EntryCredit, AmountCents: 5, DateText: "05/01/2024", Title: "x"},
	}
	for name, in := range cases {
		_, err := f.svc.CreateEntry(ctx, in)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, name)
		assert.ErrorIs(t, err, ErrValidation, name)
		assert.NotEmpty(t, verr.Fields, name)
	}

	list, err := f.svc.ListEntries(ctx, "acc", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 0, f.accounts.updateCount())
	assert.Equal(t, int64(1000), f.account(t, "acc").BalanceCents)

	evs := f.events()
	assert.Len(t, evs, len(cases))
	for _, ev := range evs {
		assert.Equal(t, status.StateError, ev.State)
	}
}

func TestCreateEntryParsesDateText(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 0, "")
	ctx := context.Background()

	in := entryIn("acc", models.EntryCredit, 5, "2024-01-01")
	in.Date, in.DateText = time.Time{}, "2024-03-07"
	res, err := f.svc.CreateEntry(ctx, in)
	require.NoError(t, err)
	e, err := f.svc.GetEntry(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, e.Date.Equal(day("2024-03-07")))

	in.DateText = "2024-3-7"
	_, err = f.svc.CreateEntry(ctx, in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, validate.Errs{{Field: "date", Msg: "must be YYYY-MM-DD"}}, verr.Fields)
}

func TestCreateEntryUnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateEntry(context.Background(), entryIn("ghost", models.EntryCredit, 10, "2024-01-01"))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "account", nf.Entity)

	list, _ := f.entries.List(context.Background(), "", 0, 0)
	assert.Empty(t, list)
}

func TestCreateEntryWriteFailureLeavesAccountAlone(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 1000, "")
	f.entries.putErr = errBoom

	_, err := f.svc.CreateEntry(context.Background(), entryIn("acc", models.EntryCredit, 10, "2024-01-01"))
	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrConsistency)
	assert.Equal(t, 0, f.accounts.updateCount())
	assert.Equal(t, int64(1000), f.account(t, "acc").BalanceCents)
}

func TestAccountWriteFailureIsConsistencyError(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 1000, "2024-01-01")
	f.accounts.failUpdates(errBoom, -1)
	ctx := context.Background()

	res, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryCredit, 300, "2024-02-01"))
	require.Error(t, err)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.ID)

	var cerr *ConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrConsistency)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []string{res.ID}, cerr.EntryIDs)
	require.Len(t, cerr.Pending, 1)
	assert.Equal(t, int64(300), cerr.Pending[0].Delta)

	// The entry stays written; the balance lags behind.
	_, err = f.entries.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), f.account(t, "acc").BalanceCents)

	evs := f.events()
	require.Len(t, evs, 1)
	assert.Equal(t, status.StateError, evs[0].State)
	assert.ErrorIs(t, evs[0].Err, ErrConsistency)

	f.accounts.failUpdates(nil, 0)
	require.NoError(t, f.svc.RetryAdjustments(ctx, cerr))
	acc := f.account(t, "acc")
	assert.Equal(t, int64(1300), acc.BalanceCents)
	assert.True(t, acc.Watermark.Equal(day("2024-02-01")))
}

func TestAdjustmentRetriesVersionConflicts(t *testing.T) {
	f := newFixture(t, WithAdjustPolicy(AdjustPolicy{Attempts: 3}))
	f.seedAccount(t, "acc", 1000, "")
	f.accounts.failUpdates(repo.ErrVersionConflict, 2)

	_, err := f.svc.CreateEntry(context.Background(), entryIn("acc", models.EntryCredit, 1, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 3, f.accounts.updateCount())
	assert.Equal(t, int64(1001), f.account(t, "acc").BalanceCents)
}

func TestAdjustmentGivesUpAfterAttempts(t *testing.T) {
	f := newFixture(t, WithAdjustPolicy(AdjustPolicy{Attempts: 2}))
	f.seedAccount(t, "acc", 1000, "")
	f.accounts.failUpdates(repo.ErrVersionConflict, -1)

	_, err := f.svc.CreateEntry(context.Background(), entryIn("acc", models.EntryCredit, 1, "2024-01-01"))
	assert.ErrorIs(t, err, ErrConsistency)
	assert.ErrorIs(t, err, repo.ErrVersionConflict)
	assert.Equal(t, 2, f.accounts.updateCount())
}

func TestLostAckIsNotRetriedIntoDoubleCredit(t *testing.T) {
	f := newFixture(t, WithAdjustPolicy(AdjustPolicy{Attempts: 3}))
	f.seedAccount(t, "acc", 1000, "")
	f.accounts.loseAcks(1)
	ctx := context.Background()

	_, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryCredit, 300, "2024-02-01"))
	var cerr *ConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, f.accounts.updateCount())
	assert.Equal(t, int64(1300), f.account(t, "acc").BalanceCents)

	// The write did land, so replaying the reported adjustment is a no-op.
	require.NoError(t, f.svc.RetryAdjustments(ctx, cerr))
	assert.Equal(t, int64(1300), f.account(t, "acc").BalanceCents)
}

func TestRetryAdjustmentsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 1000, "")
	f.accounts.failUpdates(errBoom, -1)
	ctx := context.Background()

	_, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryCredit, 300, "2024-02-01"))
	var cerr *ConsistencyError
	require.ErrorAs(t, err, &cerr)
	require.Len(t, cerr.Pending, 1)
	assert.NotEmpty(t, cerr.Pending[0].ID)

	f.accounts.failUpdates(nil, 0)
	require.NoError(t, f.svc.RetryAdjustments(ctx, cerr))
	require.NoError(t, f.svc.RetryAdjustments(ctx, cerr))
	assert.Equal(t, int64(1300), f.account(t, "acc").BalanceCents)
}

func TestRetryAdjustmentsRequiresIDs(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 1000, "")

	err := f.svc.RetryAdjustments(context.Background(), &ConsistencyError{
		Pending: []Adjustment{{AccountID: "acc", Delta: 5}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "pending[0].id", verr.Fields[0].Field)
	assert.Equal(t, 0, f.accounts.updateCount())

	evs := f.events()
	require.Len(t, evs, 1)
	assert.Equal(t, status.ActionReconcile, evs[0].Action)
	assert.Equal(t, status.StateError, evs[0].State)
}

func TestUpdateWithSameSignedAmountSkipsAccountWrite(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 1000, "2024-01-01")
	ctx := context.Background()

	res, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryDebit, 400, "2024-01-05"))
	require.NoError(t, err)
	before := f.accounts.updateCount()

	in := entryIn("acc", models.EntryDebit, 400, "2024-03-01")
	in.Title = "renamed"
	_, err = f.svc.UpdateEntry(ctx, res.ID, in)
	require.NoError(t, err)

	assert.Equal(t, before, f.accounts.updateCount())
	acc := f.account(t, "acc")
	assert.Equal(t, int64(600), acc.BalanceCents)
	// No account write means the watermark stays too.
	assert.True(t, acc.Watermark.Equal(day("2024-01-05")))

	e, err := f.svc.GetEntry(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", e.Title)
}

func TestUpdateAppliesDifference(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 1000, "2024-01-01")
	ctx := context.Background()

	res, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryCredit, 200, "2024-01-02"))
	require.NoError(t, err)
	require.Equal(t, int64(1200), f.account(t, "acc").BalanceCents)

	_, err = f.svc.UpdateEntry(ctx, res.ID, entryIn("", models.EntryDebit, 50, "2024-01-20"))
	require.NoError(t, err)

	acc := f.account(t, "acc")
	assert.Equal(t, int64(950), acc.BalanceCents)
	assert.True(t, acc.Watermark.Equal(day("2024-01-20")))

	e, _ := f.svc.GetEntry(ctx, res.ID)
	assert.Equal(t, "acc", e.AccountID)
	assert.Equal(t, models.EntryDebit, e.Kind)
}

func TestUpdateMissingEntry(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 0, "")

	_, err := f.svc.UpdateEntry(context.Background(), "nope", entryIn("acc", models.EntryCredit, 5, "2024-01-01"))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "entry", nf.Entity)
	assert.Equal(t, 0, f.accounts.updateCount())
}

func TestUpdateMovesEntryBetweenAccounts(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "a", 1000, "2024-01-01")
	f.seedAccount(t, "b", 500, "2024-01-01")
	ctx := context.Background()

	res, err := f.svc.CreateEntry(ctx, entryIn("a", models.EntryDebit, 100, "2024-01-10"))
	require.NoError(t, err)

	_, err = f.svc.UpdateEntry(ctx, res.ID, entryIn("b", models.EntryDebit, 120, "2024-01-15"))
	require.NoError(t, err)

	a, b := f.account(t, "a"), f.account(t, "b")
	assert.Equal(t, int64(1000), a.BalanceCents)
	assert.True(t, a.Watermark.Equal(day("2024-01-10")))
	assert.Equal(t, int64(380), b.BalanceCents)
	assert.True(t, b.Watermark.Equal(day("2024-01-15")))
}

func TestUpdateMovesEntryOffDeletedAccount(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "old", 1000, "")
	f.seedAccount(t, "new", 500, "")
	ctx := context.Background()

	res, err := f.svc.CreateEntry(ctx, entryIn("old", models.EntryCredit, 300, "2024-01-10"))
	require.NoError(t, err)
	require.NoError(t, f.accounts.Delete(ctx, "old"))
	f.events()

	_, err = f.svc.UpdateEntry(ctx, res.ID, entryIn("new", models.EntryCredit, 300, "2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, int64(800), f.account(t, "new").BalanceCents)

	e, err := f.svc.GetEntry(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", e.AccountID)

	evs := f.events()
	require.Len(t, evs, 1)
	assert.Equal(t, status.StateSuccess, evs[0].State)
}

func TestUpdateWithoutCategoryKeepsIt(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 0, "")
	ctx := context.Background()

	in := entryIn("acc", models.EntryDebit, 100, "2024-01-10")
	in.CategoryID = ptr("food")
	res, err := f.svc.CreateEntry(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.UpdateEntry(ctx, res.ID, entryIn("", models.EntryDebit, 150, "2024-01-10"))
	require.NoError(t, err)

	e, err := f.svc.GetEntry(ctx, res.ID)
	require.NoError(t, err)
	require.NotNil(t, e.CategoryID)
	assert.Equal(t, "food", *e.CategoryID)
	assert.Equal(t, int64(150), e.AmountCents)
}

func TestUpdateToUnknownAccountWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "a", 1000, "")
	ctx := context.Background()

	res, err := f.svc.CreateEntry(ctx, entryIn("a", models.EntryDebit, 100, "2024-01-10"))
	require.NoError(t, err)

	_, err = f.svc.UpdateEntry(ctx, res.ID, entryIn("ghost", models.EntryDebit, 100, "2024-01-10"))
	assert.ErrorIs(t, err, ErrNotFound)

	e, _ := f.svc.GetEntry(ctx, res.ID)
	assert.Equal(t, "a", e.AccountID)
}

func TestDeleteExpenseRestoresBalance(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 10000, "2024-01-01")
	ctx := context.Background()
	require.NoError(t, f.entries.Put(ctx, models.Entry{
		ID: "e1", AccountID: "acc", Kind: models.EntryDebit, AmountCents: 500, Date: day("2024-01-01"), Title: "groceries",
	}))

	res, err := f.svc.DeleteEntry(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, int64(10500), f.account(t, "acc").BalanceCents)

	_, err = f.entries.Get(ctx, "e1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDeleteMissingEntryIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 100, "")

	res, err := f.svc.DeleteEntry(context.Background(), "nope")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 0, f.accounts.updateCount())

	evs := f.events()
	require.Len(t, evs, 1)
	assert.Equal(t, status.StateSuccess, evs[0].State)
	assert.Equal(t, status.ActionDelete, evs[0].Action)
}

func TestDeleteEntryOfVanishedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.entries.Put(ctx, models.Entry{
		ID: "e1", AccountID: "gone", Kind: models.EntryCredit, AmountCents: 10, Date: day("2024-01-01"), Title: "x",
	}))

	res, err := f.svc.DeleteEntry(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	_, err = f.entries.Get(ctx, "e1")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDeleteStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.seedAccount(t, "acc", 100, "")
	ctx := context.Background()
	res, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryCredit, 10, "2024-01-01"))
	require.NoError(t, err)
	f.entries.deleteErr = errBoom

	_, err = f.svc.DeleteEntry(ctx, res.ID)
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, int64(110), f.account(t, "acc").BalanceCents)
}

// Random create/update/delete sequences must keep
// balance == baseline + sum of signed amounts of the stored entries.
func TestNoDrift(t *testing.T) {
	const baseline = 5000
	f := newFixture(t)
	f.seedAccount(t, "acc", baseline, "")
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	kinds := []models.EntryKind{models.EntryCredit, models.EntryDebit}
	dates := []string{"2024-01-01", "2024-02-14", "2024-03-31", "2023-11-05"}
	var ids []string

	for i := 0; i < 300; i++ {
		in := entryIn("acc", kinds[rng.Intn(2)], int64(rng.Intn(10000)+1), dates[rng.Intn(len(dates))])
		switch op := rng.Intn(3); {
		case op == 0 || len(ids) == 0:
			res, err := f.svc.CreateEntry(ctx, in)
			require.NoError(t, err)
			ids = append(ids, res.ID)
		case op == 1:
			_, err := f.svc.UpdateEntry(ctx, ids[rng.Intn(len(ids))], in)
			require.NoError(t, err)
		default:
			k := rng.Intn(len(ids))
			_, err := f.svc.DeleteEntry(ctx, ids[k])
			require.NoError(t, err)
			ids = append(ids[:k], ids[k+1:]...)
		}
	}

	entries, err := f.svc.ListEntries(ctx, "acc", 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, len(ids))
	var sum int64
	for _, e := range entries {
		sum += e.Signed()
	}
	assert.Equal(t, baseline+sum, f.account(t, "acc").BalanceCents)
}

func TestConcurrentCreatesDoNotLoseUpdates(t *testing.T) {
	const writers = 20
	f := newFixture(t, WithAdjustPolicy(AdjustPolicy{Attempts: writers + 5}))
	f.seedAccount(t, "acc", 0, "")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateEntry(ctx, entryIn("acc", models.EntryCredit, 10, "2024-01-01"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int64(writers*10), f.account(t, "acc").BalanceCents)
}

func TestListEntriesStoreFailureEmitsError(t *testing.T) {
	relay := status.NewChanRelay(4)
	svc := NewLedgerService(failingList{}, nil, relay)

	_, err := svc.ListEntries(context.Background(), "", 10, 0)
	assert.ErrorIs(t, err, ErrStore)
	ev := <-relay.Events()
	assert.Equal(t, status.ActionList, ev.Action)
	assert.Equal(t, status.StateError, ev.State)
	assert.Contains(t, ev.Message, "Transactions listing failed")
}

type failingList struct{ repo.Entries }

func (failingList) List(context.Context, string, int, int) ([]models.Entry, error) {
	return nil, errors.New("connection reset")
}
