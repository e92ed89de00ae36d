package ports

import (
	"context"

	"github.com/samirrijal/trailmap/internal/core/domain"
)

// Notifier delivers visualization events (selection, reveal completion,
// catalog load results) to whoever listens. It replaces ambient global
// stores: components receive it explicitly at construction.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event) error
}

// RefreshSubscriber delivers catalog refresh requests.
type RefreshSubscriber interface {
	SubscribeRefresh(ctx context.Context, handler func(ctx context.Context, source string) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
