package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

const minPasswordLength = 6

// AuthService implements the credential store: registration, credential
// verification and user lookup.
type AuthService struct {
	repo     ports.UserRepository
	validate *validator.Validate
	cost     int
	log      zerolog.Logger

	// dummyHash is compared against when the email is unknown so that both
	// failure paths of VerifyCredentials cost one bcrypt comparison.
	dummyHash []byte
}

func NewAuthService(repo ports.UserRepository, log zerolog.Logger) *AuthService {
	return newAuthService(repo, bcrypt.DefaultCost, log)
}

func newAuthService(repo ports.UserRepository, cost int, log zerolog.Logger) *AuthService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("sweet-shop-dummy"), cost)
	return &AuthService{
		repo:      repo,
		validate:  validator.New(),
		cost:      cost,
		log:       log,
		dummyHash: dummy,
	}
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := NormalizeEmail(in.Email)

	var msgs []string
	if name == "" {
		msgs = append(msgs, "Please provide a name")
	}
	if email == "" {
		msgs = append(msgs, "Please provide an email")
	} else if s.validate.Var(email, "email") != nil {
		msgs = append(msgs, "Please provide a valid email")
	}
	if in.Password == "" {
		msgs = append(msgs, "Please provide a password")
	} else if utf8.RuneCountInString(in.Password) < minPasswordLength {
		msgs = append(msgs, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if len(msgs) > 0 {
		return nil, domain.NewValidationError(strings.Join(msgs, ", "))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return created, nil
}

func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) PromoteToAdmin(ctx context.Context, email string) (*domain.User, bool, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, false, err
	}
	if user.IsAdmin() {
		return user, false, nil
	}

	updated, err := s.repo.UpdateRole(ctx, user.ID, domain.RoleAdmin)
	if err != nil {
		return nil, false, fmt.Errorf("promote user: %w", err)
	}

	s.log.Info().Str("user_id", updated.ID).Msg("user promoted to admin")
	return updated, true, nil
}
