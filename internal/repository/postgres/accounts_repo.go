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

type accountsRepo struct{ db DBTX }

const accountCols = `id, name, color_hex, description, balance_cents, watermark, version, created_at, updated_at`

func scanAccount(row pgx.Row) (models.Account, error) {
	var (
		a    models.Account
		desc pgtype.Text
		wm   pgtype.Timestamptz
	)
	err := row.Scan(&a.ID, &a.Name, &a.ColorHex, &desc, &a.BalanceCents, &wm, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return models.Account{}, err
	}
	if desc.Valid {
		a.Description = &desc.String
	}
	if wm.Valid {
		t := wm.Time
		a.Watermark = &t
	}
	return a, nil
}

func (r *accountsRepo) Get(ctx context.Context, id string) (models.Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountCols+`
		   FROM accounts
		  WHERE id=$1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, repo.ErrNotFound
	}
	return a, err
}

// Update applies p in a single statement. With IfVersion set the row is only
// touched when its version still matches. A patch carrying an AdjustmentID
// records the id in account_adjustments within the same transaction.
func (r *accountsRepo) Update(ctx context.Context, id string, p models.AccountPatch) (a models.Account, err error) {
	if p.AdjustmentID == "" {
		return updateAccount(ctx, r.db, id, p)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return models.Account{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`INSERT INTO account_adjustments (id, account_id)
		 VALUES ($1,$2)
		 ON CONFLICT (id) DO NOTHING`,
		p.AdjustmentID, id,
	)
	if err != nil {
		return models.Account{}, fmt.Errorf("record adjustment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Account{}, repo.ErrAlreadyApplied
	}

	if a, err = updateAccount(ctx, tx, id, p); err != nil {
		return models.Account{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Account{}, err
	}
	return a, nil
}

func updateAccount(ctx context.Context, db DBTX, id string, p models.AccountPatch) (models.Account, error) {
	a, err := scanAccount(db.QueryRow(ctx,
		`UPDATE accounts
		    SET balance_cents = COALESCE($2, balance_cents),
		        watermark = COALESCE($3, watermark),
		        version = version + 1,
		        updated_at = now()
		  WHERE id = $1
		    AND ($4::bigint IS NULL OR version = $4)
		  RETURNING `+accountCols,
		id, p.BalanceCents, p.Watermark, p.IfVersion,
	))
	if !errors.Is(err, pgx.ErrNoRows) {
		return a, err
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id=$1)`, id).Scan(&exists); err != nil {
		return models.Account{}, fmt.Errorf("account exists check: %w", err)
	}
	if !exists {
		return models.Account{}, repo.ErrNotFound
	}
	return models.Account{}, repo.ErrVersionConflict
}

func (r *accountsRepo) Save(ctx context.Context, a models.Account) (models.Account, error) {
	return scanAccount(r.db.QueryRow(ctx,
		`INSERT INTO accounts (id, name, color_hex, description, balance_cents, watermark, version, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,1,$7,$8)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     color_hex = EXCLUDED.color_hex,
		     description = EXCLUDED.description,
		     balance_cents = EXCLUDED.balance_cents,
		     watermark = EXCLUDED.watermark,
		     version = accounts.version + 1,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+accountCols,
		a.ID, a.Name, a.ColorHex, a.Description, a.BalanceCents, a.Watermark, a.CreatedAt, a.UpdatedAt,
	))
}

func (r *accountsRepo) List(ctx context.Context) ([]models.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountCols+` FROM accounts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *accountsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	return err
}
