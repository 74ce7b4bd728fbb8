package cartitem

import (
	"context"

	"storefront-sync/internal/domain"
)

// Repository stores cart lines remotely, one record per (user, product).
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.CartLine, error)
	FindByProduct(ctx context.Context, userID string, productID int) (*domain.CartLine, error)
	Create(ctx context.Context, userID string, line domain.CartLine) (*domain.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, id string, quantity int) error
	Delete(ctx context.Context, userID, id string) error
}
