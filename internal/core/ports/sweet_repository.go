package ports

import (
	"context"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
)

// SweetFilter carries the optional, conjunctive search predicates.
// The zero value matches every sweet.
type SweetFilter struct {
	Name     string           // case-insensitive substring of the name
	Category *domain.Category // exact category
	MinPrice *float64         // price >= MinPrice
	MaxPrice *float64         // price <= MaxPrice
}

// IsZero reports whether no predicate is set.
func (f SweetFilter) IsZero() bool {
	return f.Name == "" && f.Category == nil && f.MinPrice == nil && f.MaxPrice == nil
}

// SweetRepository defines persistence for the inventory ledger.
type SweetRepository interface {
	Create(ctx context.Context, s *domain.Sweet) (*domain.Sweet, error)
	FindByID(ctx context.Context, id string) (*domain.Sweet, error)
	// List returns matching sweets ordered newest-created first.
	List(ctx context.Context, filter SweetFilter) ([]*domain.Sweet, error)
	// Update writes only the patched attributes and returns the stored result.
	Update(ctx context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error)
	Delete(ctx context.Context, id string) error

	// DecreaseQuantity subtracts amount in a single conditional write that
	// only matches while the stored quantity is >= amount. It returns
	// domain.ErrInsufficientStock when the sweet exists but the condition
	// did not hold, and domain.ErrSweetNotFound when it does not exist.
	DecreaseQuantity(ctx context.Context, id string, amount int) (*domain.Sweet, error)
	// IncreaseQuantity adds amount in a single write.
	IncreaseQuantity(ctx context.Context, id string, amount int) (*domain.Sweet, error)
}
