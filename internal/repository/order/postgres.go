package order

import (
	"context"
	"fmt"

	"storefront-sync/internal/db"
	"storefront-sync/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type postgresRepo struct {
	pool db.DBTX
}

func NewPostgres(pool db.DBTX) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) CreateBatch(ctx context.Context, records []domain.OrderRecord) ([]domain.OrderRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO checkout_orders (id, order_id, user_id, product_id, title, price, quantity, subtotal)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at
`
	out := make([]domain.OrderRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if err := tx.QueryRow(ctx, q,
			rec.ID,
			rec.OrderID,
			rec.UserID,
			rec.ProductID,
			rec.Title,
			rec.Price,
			rec.Quantity,
			rec.Subtotal,
		).Scan(&rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert line product_id=%d: %w", rec.ProductID, err)
		}
		out = append(out, rec)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.OrderRecord, error) {
	const q = `
SELECT id, order_id, user_id, product_id, title, price, quantity, subtotal, created_at
FROM checkout_orders
WHERE user_id = $1
ORDER BY created_at DESC, order_id, id
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *postgresRepo) ListByOrder(ctx context.Context, userID, orderID string) ([]domain.OrderRecord, error) {
	const q = `
SELECT id, order_id, user_id, product_id, title, price, quantity, subtotal, created_at
FROM checkout_orders
WHERE user_id = $1 AND order_id = $2
ORDER BY created_at ASC, id
`
	rows, err := r.pool.Query(ctx, q, userID, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]domain.OrderRecord, error) {
	defer rows.Close()
	out := []domain.OrderRecord{}
	for rows.Next() {
		var rec domain.OrderRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.OrderID,
			&rec.UserID,
			&rec.ProductID,
			&rec.Title,
			&rec.Price,
			&rec.Quantity,
			&rec.Subtotal,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
