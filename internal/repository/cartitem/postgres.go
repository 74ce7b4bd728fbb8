package cartitem

import (
	"context"
	"errors"

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

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.CartLine, error) {
	const q = `
SELECT id, product_id, title, price, image, quantity
FROM cart_items
WHERE user_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.RemoteRecordID,
			&line.ProductID,
			&line.Title,
			&line.UnitPrice,
			&line.Image,
			&line.Quantity,
		); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *postgresRepo) FindByProduct(ctx context.Context, userID string, productID int) (*domain.CartLine, error) {
	const q = `
SELECT id, product_id, title, price, image, quantity
FROM cart_items
WHERE user_id = $1 AND product_id = $2
LIMIT 1
`
	var line domain.CartLine
	err := r.pool.QueryRow(ctx, q, userID, productID).Scan(
		&line.RemoteRecordID,
		&line.ProductID,
		&line.Title,
		&line.UnitPrice,
		&line.Image,
		&line.Quantity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

func (r *postgresRepo) Create(ctx context.Context, userID string, line domain.CartLine) (*domain.CartLine, error) {
	if line.RemoteRecordID == "" {
		line.RemoteRecordID = uuid.NewString()
	}
	const q = `
INSERT INTO cart_items (id, user_id, product_id, title, price, image, quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.pool.Exec(ctx, q,
		line.RemoteRecordID,
		userID,
		line.ProductID,
		line.Title,
		line.UnitPrice,
		line.Image,
		line.Quantity,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &line, nil
}

func (r *postgresRepo) UpdateQuantity(ctx context.Context, userID, id string, quantity int) error {
	const q = `
UPDATE cart_items
SET quantity = $1, updated_at = now()
WHERE id = $2 AND user_id = $3
`
	cmd, err := r.pool.Exec(ctx, q, quantity, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, userID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
