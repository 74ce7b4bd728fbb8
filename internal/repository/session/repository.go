package session

import (
	"context"
	"time"
)

// Record is a server-side login session. Tokens reference it by ID.
type Record struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
}
