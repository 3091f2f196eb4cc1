package ports

import (
	"context"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
)

// MovementRepository persists the stock movement audit trail.
type MovementRepository interface {
	Insert(ctx context.Context, m *domain.StockMovement) error
	// ListBySweet returns up to limit movements, newest first.
	ListBySweet(ctx context.Context, sweetID string, limit int) ([]*domain.StockMovement, error)
}

// MovementPublisher hands a movement to the asynchronous recorder.
type MovementPublisher interface {
	Enqueue(m domain.StockMovement)
}

// IdempotencyStore guards against replayed requests.
type IdempotencyStore interface {
	// Claim records key and reports false when it was already claimed.
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
