package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

const productColumns = "id, sku, name, description, active, created_at, updated_at"

// stageTable is created per transaction and dropped on commit.
const stageTable = "product_import_stage"

const createStage = `CREATE TEMP TABLE ` + stageTable + ` (
	sku         text    NOT NULL,
	name        text    NOT NULL,
	description text    NOT NULL,
	active      boolean NOT NULL
) ON COMMIT DROP`

// Conflicts are resolved against the lower(sku) unique index, so a chunk
// row overwrites an existing product whose SKU differs only in case. The
// stored SKU and created_at are kept.
const upsertFromStage = `INSERT INTO products (sku, name, description, active, created_at, updated_at)
SELECT sku, name, description, active, $1, $1 FROM ` + stageTable + `
ON CONFLICT ((lower(sku))) DO UPDATE SET
	name        = EXCLUDED.name,
	description = EXCLUDED.description,
	active      = EXCLUDED.active,
	updated_at  = EXCLUDED.updated_at`

var stageColumns = []string{"sku", "name", "description", "active"}

// UpsertChunk writes one deduplicated chunk in a single transaction. Rows
// are bulk-copied into a temporary table and merged from there.
func (s *Store) UpsertChunk(ctx context.Context, rows []core.ProductRow, now time.Time) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var written int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createStage); err != nil {
			return fmt.Errorf("create stage table: %w", err)
		}

		src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.SKU, r.Name, r.Description, r.Active}, nil
		})
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{stageTable}, stageColumns, src); err != nil {
			return fmt.Errorf("copy chunk: %w", err)
		}

		tag, err := tx.Exec(ctx, upsertFromStage, now)
		if err != nil {
			return fmt.Errorf("merge chunk: %w", err)
		}
		written = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(written), nil
}

func (s *Store) ListProducts(ctx context.Context, f core.ProductFilter) ([]core.Product, int64, error) {
	var w whereBuilder
	w.contains("sku", f.SKU)
	w.contains("name", f.Name)
	w.contains("description", f.Description)
	if f.Active != nil {
		w.add("active = $%d", *f.Active)
	}

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM products"+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	n := w.next()
	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY id LIMIT $%d OFFSET $%d", productColumns, w.sql(), n, n+1)
	args := append(w.args, f.Size, (f.Page-1)*f.Size)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, 0, fmt.Errorf("scan products: %w", err)
	}
	return items, total, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (core.Product, error) {
	return s.oneProduct(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
}

// GetProductBySKU matches case-insensitively.
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (core.Product, error) {
	return s.oneProduct(ctx, "SELECT "+productColumns+" FROM products WHERE lower(sku) = lower($1)", sku)
}

func (s *Store) CreateProduct(ctx context.Context, in core.ProductInput, now time.Time) (core.Product, error) {
	description := ""
	if in.Description != nil {
		description = *in.Description
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	return s.oneProduct(ctx, `INSERT INTO products (sku, name, description, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING `+productColumns, in.SKU, in.Name, description, active, now)
}

// UpdateProduct applies the non-nil fields of p. The SKU is never changed.
func (s *Store) UpdateProduct(ctx context.Context, id int64, p core.ProductPatch, now time.Time) (core.Product, error) {
	return s.oneProduct(ctx, `UPDATE products SET
	name        = COALESCE($2, name),
	description = COALESCE($3, description),
	active      = COALESCE($4, active),
	updated_at  = $5
WHERE id = $1
RETURNING `+productColumns, id, p.Name, p.Description, p.Active, now)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAllProducts(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM products")
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) oneProduct(ctx context.Context, query string, args ...any) (core.Product, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return core.Product{}, translate(err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return core.Product{}, translate(err)
	}
	return p, nil
}

func scanProduct(row pgx.CollectableRow) (core.Product, error) {
	var p core.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
