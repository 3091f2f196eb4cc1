package domain

import "errors"

var (
	ErrUnauthenticated  = errors.New("not authorized to access this route")
	ErrTokenInvalid     = errors.New("token invalid")
	ErrTokenExpired     = errors.New("token expired")
	ErrForbidden        = errors.New("access forbidden")
	ErrValidationFailed = errors.New("validation failed")
	ErrDuplicateRequest = errors.New("request already processed")
)

// ValidationError carries a human-readable reason for rejected input.
// errors.Is(err, ErrValidationFailed) holds for every ValidationError.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
