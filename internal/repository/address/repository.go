package address

import (
	"context"

	"storefront-sync/internal/domain"
)

// Repository stores checkout addresses. A user normally has one; List returns
// them oldest first.
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.Address, error)
	Create(ctx context.Context, userID string, a domain.Address) (*domain.Address, error)
	Update(ctx context.Context, userID string, a domain.Address) (*domain.Address, error)
}
