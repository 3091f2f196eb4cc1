package ports

import (
	"context"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
)

// RegisterInput carries the fields needed to open an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthService is the credential store's use-case boundary.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	// VerifyCredentials returns domain.ErrInvalidCredentials for both an
	// unknown email and a wrong password.
	VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// PromoteToAdmin grants the admin role. changed is false when the user
	// already was an admin.
	PromoteToAdmin(ctx context.Context, email string) (user *domain.User, changed bool, err error)
}
