package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

const movementHistoryLimit = 100

// SweetService implements the inventory ledger.
//
// Stock changes are delegated to the repository's conditional writes; the
// service never reads a quantity and writes it back.
type SweetService struct {
	repo      ports.SweetRepository
	movements ports.MovementRepository
	publisher ports.MovementPublisher
	idem      ports.IdempotencyStore
	log       zerolog.Logger
	now       func() time.Time
}

// NewSweetService wires the ledger. movements, publisher and idem may be nil,
// which disables the audit trail and purchase idempotency respectively.
func NewSweetService(
	repo ports.SweetRepository,
	movements ports.MovementRepository,
	publisher ports.MovementPublisher,
	idem ports.IdempotencyStore,
	log zerolog.Logger,
) *SweetService {
	return &SweetService{
		repo:      repo,
		movements: movements,
		publisher: publisher,
		idem:      idem,
		log:       log,
		now:       time.Now,
	}
}

func (s *SweetService) Create(ctx context.Context, in ports.SweetInput) (*domain.Sweet, error) {
	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		imageURL = domain.DefaultImageURL
	}

	now := s.now().UTC()
	sweet := &domain.Sweet{
		Name:        strings.TrimSpace(in.Name),
		Category:    in.Category,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Description: in.Description,
		ImageURL:    imageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := sweet.Validate(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, sweet)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create sweet")
		return nil, fmt.Errorf("create sweet: %w", err)
	}

	s.log.Info().Str("sweet_id", created.ID).Str("category", string(created.Category)).Msg("sweet created")
	return created, nil
}

func (s *SweetService) Get(ctx context.Context, id string) (*domain.Sweet, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *SweetService) List(ctx context.Context) ([]*domain.Sweet, error) {
	return s.repo.List(ctx, ports.SweetFilter{})
}

// Search applies the filter conjunctively. An empty filter is List.
func (s *SweetService) Search(ctx context.Context, filter ports.SweetFilter) ([]*domain.Sweet, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	return s.repo.List(ctx, filter)
}

// Update merges patch into the stored sweet, validates the merged result and
// writes only the patched attributes.
func (s *SweetService) Update(ctx context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return current, nil
	}

	merged := patch.Apply(*current)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	normalized := domain.SweetPatch{
		Category:    patch.Category,
		Price:       patch.Price,
		Quantity:    patch.Quantity,
		Description: patch.Description,
	}
	if patch.Name != nil {
		normalized.Name = &merged.Name
	}
	if patch.ImageURL != nil {
		normalized.ImageURL = &merged.ImageURL
	}

	updated, err := s.repo.Update(ctx, id, normalized)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("sweet_id", id).Msg("sweet updated")
	return updated, nil
}

func (s *SweetService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Str("sweet_id", id).Msg("sweet deleted")
	return nil
}

// Purchase removes in.Amount units. Two concurrent purchases can never both
// pass the stock check against the same quantity: the check and the
// decrement are one write in the repository.
func (s *SweetService) Purchase(ctx context.Context, in ports.PurchaseInput) (*domain.Sweet, error) {
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	key, claimed, err := s.claim(ctx, in)
	if err != nil {
		return nil, err
	}

	sweet, err := s.repo.DecreaseQuantity(ctx, in.SweetID, in.Amount)
	if err != nil {
		if claimed {
			if relErr := s.idem.Release(ctx, key); relErr != nil {
				s.log.Warn().Err(relErr).Str("key", key).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	s.record(domain.MovementPurchase, sweet, in.Amount, in.Caller.UserID)
	s.log.Info().
		Str("sweet_id", sweet.ID).
		Str("user_id", in.Caller.UserID).
		Int("amount", in.Amount).
		Int("remaining", sweet.Quantity).
		Msg("sweet purchased")
	return sweet, nil
}

// Restock adds in.Amount units unconditionally.
func (s *SweetService) Restock(ctx context.Context, in ports.RestockInput) (*domain.Sweet, error) {
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	sweet, err := s.repo.IncreaseQuantity(ctx, in.SweetID, in.Amount)
	if err != nil {
		return nil, err
	}

	s.record(domain.MovementRestock, sweet, in.Amount, in.Caller.UserID)
	s.log.Info().
		Str("sweet_id", sweet.ID).
		Str("user_id", in.Caller.UserID).
		Int("amount", in.Amount).
		Int("remaining", sweet.Quantity).
		Msg("sweet restocked")
	return sweet, nil
}

// Movements returns the newest audit records of a sweet.
func (s *SweetService) Movements(ctx context.Context, sweetID string) ([]*domain.StockMovement, error) {
	if _, err := s.repo.FindByID(ctx, sweetID); err != nil {
		return nil, err
	}
	if s.movements == nil {
		return []*domain.StockMovement{}, nil
	}
	return s.movements.ListBySweet(ctx, sweetID, movementHistoryLimit)
}

// claim reserves the idempotency key of a purchase. Store failures are
// logged and the purchase proceeds unguarded.
func (s *SweetService) claim(ctx context.Context, in ports.PurchaseInput) (string, bool, error) {
	if s.idem == nil || in.IdempotencyKey == "" {
		return "", false, nil
	}

	key := fmt.Sprintf("purchase:%s:%s", in.Caller.UserID, in.IdempotencyKey)
	ok, err := s.idem.Claim(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency check failed, processing anyway")
		return "", false, nil
	}
	if !ok {
		s.log.Debug().Str("key", key).Msg("duplicate purchase skipped")
		return "", false, domain.ErrDuplicateRequest
	}
	return key, true, nil
}

func (s *SweetService) record(kind domain.MovementKind, sweet *domain.Sweet, amount int, userID string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Enqueue(domain.StockMovement{
		SweetID:   sweet.ID,
		Kind:      kind,
		Amount:    amount,
		Remaining: sweet.Quantity,
		UserID:    userID,
		At:        s.now().UTC(),
	})
}
