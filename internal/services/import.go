package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fobos-app/ledger/internal/metrics"
	"github.com/fobos-app/ledger/internal/models"
	"github.com/fobos-app/ledger/internal/status"
	"github.com/fobos-app/ledger/internal/validate"
)

// ImportItem is one candidate entry produced by a statement parser.
type ImportItem struct {
	Kind        models.EntryKind
	CategoryID  string
	AmountCents int64
	Date        time.Time
	// DateText (YYYY-MM-DD) is used when Date is zero.
	DateText string
	Title    string
	Note     *string
}

type ImportResult struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

func (it ImportItem) validate() validate.Errs {
	var errs validate.Errs
	errs.Add(
		validate.OneOf("kind", string(it.Kind), string(models.EntryCredit), string(models.EntryDebit)),
		validate.MinInt("amount_cents", it.AmountCents, 1),
		validate.Required("title", it.Title),
		validate.Required("category_id", it.CategoryID),
	)
	return errs
}

// ImportBatch commits items to one account as a single aggregate adjustment.
// Every item is validated first; one bad item rejects the batch with no
// writes. The entries go out in one PutMany and the account gets exactly one
// write with the summed delta and the latest item date as watermark
// candidate.
func (s *LedgerService) ImportBatch(ctx context.Context, accountID string, items []ImportItem) (ImportResult, error) {
	res, err := s.importBatch(ctx, accountID, items)
	s.finish(ctx, status.ActionImport,
		fmt.Sprintf("Imported %d transactions", res.Count), "Transactions import failed", err)
	if err == nil {
		metrics.ImportedEntries.Add(float64(res.Count))
	}
	return res, err
}

func (s *LedgerService) importBatch(ctx context.Context, accountID string, items []ImportItem) (ImportResult, error) {
	accountID = strings.TrimSpace(accountID)

	items = append([]ImportItem(nil), items...)

	var errs validate.Errs
	errs.Add(validate.Required("account_id", accountID))
	for i := range items {
		items[i].Title = strings.TrimSpace(items[i].Title)
		items[i].CategoryID = strings.TrimSpace(items[i].CategoryID)
		var dateErr *validate.ErrField
		items[i].Date, dateErr = resolveDate(items[i].Date, items[i].DateText)
		itemErrs := items[i].validate()
		itemErrs.Add(dateErr)
		errs = append(errs, itemErrs.Prefix(fmt.Sprintf("items[%d].", i))...)
	}
	if len(errs) > 0 {
		return ImportResult{}, &ValidationError{Fields: errs}
	}
	if len(items) == 0 {
		return ImportResult{OK: true}, nil
	}
	if err := s.requireAccount(ctx, accountID); err != nil {
		return ImportResult{}, err
	}

	now := s.now()
	entries := make([]models.Entry, 0, len(items))
	ids := make([]string, 0, len(items))
	var delta int64
	var latest time.Time
	for _, it := range items {
		category := it.CategoryID
		e := models.Entry{
			ID:          s.newID(),
			AccountID:   accountID,
			Kind:        it.Kind,
			AmountCents: it.AmountCents,
			Date:        it.Date,
			Title:       it.Title,
			CategoryID:  &category,
			Note:        it.Note,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		entries = append(entries, e)
		ids = append(ids, e.ID)
		delta += e.Signed()
		if e.Date.After(latest) {
			latest = e.Date
		}
	}

	if err := s.entries.PutMany(ctx, entries); err != nil {
		return ImportResult{}, &StoreError{Op: "put entries", Err: err}
	}

	adj := s.adjustment(accountID, delta, &latest)
	if err := s.rec.applyAll(ctx, ids, []Adjustment{adj}); err != nil {
		return ImportResult{Count: len(entries)}, err
	}
	return ImportResult{OK: true, Count: len(entries)}, nil
}
