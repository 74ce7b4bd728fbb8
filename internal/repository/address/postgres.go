package address

import (
	"context"

	"storefront-sync/internal/db"
	"storefront-sync/internal/domain"
	"storefront-sync/internal/logging"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type postgresRepo struct {
	pool   db.DBTX
	logger logrus.FieldLogger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool db.DBTX, logger logrus.FieldLogger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrDiscard(logger)}
}

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.Address, error) {
	const q = `
SELECT id, full_name, email, street, city, province, postal_code, card_number_masked, expiry, cvv_present
FROM addresses
WHERE user_id = $1
ORDER BY created_at ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Error("address repo: list")
		return nil, err
	}
	defer rows.Close()

	out := []domain.Address{}
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(
			&a.RemoteRecordID,
			&a.FullName,
			&a.Email,
			&a.Street,
			&a.City,
			&a.Province,
			&a.PostalCode,
			&a.CardNumberMasked,
			&a.Expiry,
			&a.CVVPresent,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Create(ctx context.Context, userID string, a domain.Address) (*domain.Address, error) {
	a.RemoteRecordID = uuid.NewString()
	const q = `
INSERT INTO addresses (id, user_id, full_name, email, street, city, province, postal_code, card_number_masked, expiry, cvv_present)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	if _, err := r.pool.Exec(ctx, q,
		a.RemoteRecordID,
		userID,
		a.FullName,
		a.Email,
		a.Street,
		a.City,
		a.Province,
		a.PostalCode,
		a.CardNumberMasked,
		a.Expiry,
		a.CVVPresent,
	); err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Error("address repo: create")
		return nil, err
	}
	return &a, nil
}

func (r *postgresRepo) Update(ctx context.Context, userID string, a domain.Address) (*domain.Address, error) {
	const q = `
UPDATE addresses
SET full_name = $1, email = $2, street = $3, city = $4, province = $5, postal_code = $6,
    card_number_masked = $7, expiry = $8, cvv_present = $9, updated_at = now()
WHERE id = $10 AND user_id = $11
`
	cmd, err := r.pool.Exec(ctx, q,
		a.FullName,
		a.Email,
		a.Street,
		a.City,
		a.Province,
		a.PostalCode,
		a.CardNumberMasked,
		a.Expiry,
		a.CVVPresent,
		a.RemoteRecordID,
		userID,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{"user_id": userID, "id": a.RemoteRecordID}).Error("address repo: update")
		return nil, err
	}
	if cmd.RowsAffected() == 0 {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}
