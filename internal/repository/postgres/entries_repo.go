package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
)

type entriesRepo struct{ db DBTX }

const entryCols = `id, account_id, kind, amount_cents, date, title, category_id, note, created_at, updated_at`

const upsertEntry = `
INSERT INTO entries (id, account_id, kind, amount_cents, date, title, category_id, note, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE
SET account_id = EXCLUDED.account_id,
    kind = EXCLUDED.kind,
    amount_cents = EXCLUDED.amount_cents,
    date = EXCLUDED.date,
    title = EXCLUDED.title,
    category_id = EXCLUDED.category_id,
    note = EXCLUDED.note,
    updated_at = EXCLUDED.updated_at`

func entryArgs(e models.Entry) []any {
	return []any{e.ID, e.AccountID, string(e.Kind), e.AmountCents, e.Date, e.Title, e.CategoryID, e.Note, e.CreatedAt, e.UpdatedAt}
}

func scanEntry(row pgx.Row) (models.Entry, error) {
	var (
		e        models.Entry
		kind     string
		category pgtype.Text
		note     pgtype.Text
	)
	err := row.Scan(&e.ID, &e.AccountID, &kind, &e.AmountCents, &e.Date, &e.Title, &category, &note, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return models.Entry{}, err
	}
	e.Kind = models.EntryKind(kind)
	e.Date = models.DayOf(e.Date)
	if category.Valid {
		e.CategoryID = &category.String
	}
	if note.Valid {
		e.Note = &note.String
	}
	return e, nil
}

func (r *entriesRepo) Get(ctx context.Context, id string) (models.Entry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx,
		`SELECT `+entryCols+`
		   FROM entries
		  WHERE id=$1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Entry{}, repo.ErrNotFound
	}
	return e, err
}

func (r *entriesRepo) Put(ctx context.Context, e models.Entry) error {
	_, err := r.db.Exec(ctx, upsertEntry, entryArgs(e)...)
	return err
}

func (r *entriesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM entries WHERE id=$1`, id)
	return err
}

// PutMany writes es in one transaction; either all rows land or none.
func (r *entriesRepo) PutMany(ctx context.Context, es []models.Entry) (err error) {
	if len(es) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for i, e := range es {
		if _, err = tx.Exec(ctx, upsertEntry, entryArgs(e)...); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *entriesRepo) List(ctx context.Context, accountID string, limit, offset int) ([]models.Entry, error) {
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+entryCols+`
		   FROM entries
		  WHERE ($1 = '' OR account_id = $1)
		  ORDER BY date DESC, created_at DESC
		  LIMIT $2 OFFSET $3`,
		accountID, lim, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
