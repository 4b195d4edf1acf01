package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fobos-app/ledger/internal/models"
	repo "github.com/fobos-app/ledger/internal/repository"
)

type categoriesRepo struct{ db DBTX }

const categoryCols = `id, name, color_hex, created_at, updated_at`

func scanCategory(row pgx.Row) (models.Category, error) {
	var (
		c     models.Category
		color pgtype.Text
	)
	if err := row.Scan(&c.ID, &c.Name, &color, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return models.Category{}, err
	}
	if color.Valid {
		c.ColorHex = &color.String
	}
	return c, nil
}

func (r *categoriesRepo) Get(ctx context.Context, id string) (models.Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, `SELECT `+categoryCols+` FROM categories WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Category{}, repo.ErrNotFound
	}
	return c, err
}

func (r *categoriesRepo) Save(ctx context.Context, c models.Category) (models.Category, error) {
	return scanCategory(r.db.QueryRow(ctx,
		`INSERT INTO categories (id, name, color_hex, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     color_hex = EXCLUDED.color_hex,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+categoryCols,
		c.ID, c.Name, c.ColorHex, c.CreatedAt, c.UpdatedAt,
	))
}

func (r *categoriesRepo) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryCols+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *categoriesRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	return err
}
