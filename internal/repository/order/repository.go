package order

import (
	"context"

	"storefront-sync/internal/domain"
)

// Repository stores checkout records, one per confirmed cart line.
type Repository interface {
	// CreateBatch inserts every record or none of them.
	CreateBatch(ctx context.Context, records []domain.OrderRecord) ([]domain.OrderRecord, error)
	ListByUser(ctx context.Context, userID string) ([]domain.OrderRecord, error)
	ListByOrder(ctx context.Context, userID, orderID string) ([]domain.OrderRecord, error)
}
