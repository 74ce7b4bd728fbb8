package localcache

import (
	"context"
	"errors"
)

// ErrMiss is returned by Store.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// Store is a namespaced key-value store of raw JSON values. Each storefront
// session gets its own namespace.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace string, keys ...string) error
	Ping(ctx context.Context) error
}
