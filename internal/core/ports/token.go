package ports

// TokenIssuer mints signed identity tokens.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// TokenVerifier validates a token and returns the user id it was issued for.
// Failures wrap domain.ErrTokenInvalid or domain.ErrTokenExpired.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// TokenService issues and verifies tokens.
type TokenService interface {
	TokenIssuer
	TokenVerifier
}
