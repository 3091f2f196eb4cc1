package ports

import (
	"context"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
)

// UserRepository defines persistence for the credential store.
// Email uniqueness is enforced by the store itself; Create reports a
// collision as domain.ErrDuplicateEmail.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
}
