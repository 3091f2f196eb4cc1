package ports

import "github.com/sweetshop/sweet-shop/internal/core/domain"

// Caller is the authenticated identity attached to a request by the auth
// middleware. Role is read from the credential store on every request.
type Caller struct {
	UserID string
	Role   domain.Role
}
