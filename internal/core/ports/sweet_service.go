package ports

import (
	"context"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
)

// SweetInput carries the fields of a new catalog entry.
type SweetInput struct {
	Name        string
	Category    domain.Category
	Price       float64
	Quantity    int
	Description string
	ImageURL    string
}

// PurchaseInput carries a stock decrement request.
type PurchaseInput struct {
	SweetID string
	Amount  int
	Caller  Caller
	// IdempotencyKey is optional. A key that was already used by the same
	// caller makes the call fail with domain.ErrDuplicateRequest.
	IdempotencyKey string
}

// RestockInput carries a stock increment request.
type RestockInput struct {
	SweetID string
	Amount  int
	Caller  Caller
}

// SweetService is the inventory ledger's use-case boundary.
type SweetService interface {
	Create(ctx context.Context, in SweetInput) (*domain.Sweet, error)
	Get(ctx context.Context, id string) (*domain.Sweet, error)
	List(ctx context.Context) ([]*domain.Sweet, error)
	Search(ctx context.Context, filter SweetFilter) ([]*domain.Sweet, error)
	Update(ctx context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error)
	Delete(ctx context.Context, id string) error
	Purchase(ctx context.Context, in PurchaseInput) (*domain.Sweet, error)
	Restock(ctx context.Context, in RestockInput) (*domain.Sweet, error)
	Movements(ctx context.Context, sweetID string) ([]*domain.StockMovement, error)
}
