package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	nextID  int
	findErr error // if set, lookups return this error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.nextID++
	clone := *u
	clone.ID = fmt.Sprintf("u%d", r.nextID)
	r.byID[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) UpdateRole(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	clone := *u
	return &clone, nil
}

// stubSweetRepo mirrors the conditional-write contract of the Mongo
// repository: the stock check and the decrement happen under one lock.
type stubSweetRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Sweet
	order     []string
	nextID    int
	writeErr  error // if set, stock writes return this error
	lastPatch domain.SweetPatch
}

func newStubSweetRepo() *stubSweetRepo {
	return &stubSweetRepo{byID: make(map[string]*domain.Sweet)}
}

func (r *stubSweetRepo) Create(_ context.Context, s *domain.Sweet) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	clone := *s
	clone.ID = fmt.Sprintf("s%d", r.nextID)
	r.byID[clone.ID] = &clone
	r.order = append(r.order, clone.ID)
	out := clone
	return &out, nil
}

func (r *stubSweetRepo) FindByID(_ context.Context, id string) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrSweetNotFound
	}
	clone := *s
	return &clone, nil
}

func (r *stubSweetRepo) List(_ context.Context, f ports.SweetFilter) ([]*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Sweet
	for i := len(r.order) - 1; i >= 0; i-- {
		s, ok := r.byID[r.order[i]]
		if !ok {
			continue
		}
		if f.Name != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Name)) {
			continue
		}
		if f.Category != nil && s.Category != *f.Category {
			continue
		}
		if f.MinPrice != nil && s.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && s.Price > *f.MaxPrice {
			continue
		}
		clone := *s
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubSweetRepo) Update(_ context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrSweetNotFound
	}
	r.lastPatch = patch
	merged := patch.Apply(*s)
	r.byID[id] = &merged
	out := merged
	return &out, nil
}

func (r *stubSweetRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrSweetNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubSweetRepo) DecreaseQuantity(_ context.Context, id string, amount int) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return nil, r.writeErr
	}
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrSweetNotFound
	}
	if s.Quantity < amount {
		return nil, domain.ErrInsufficientStock
	}
	s.Quantity -= amount
	clone := *s
	return &clone, nil
}

func (r *stubSweetRepo) IncreaseQuantity(_ context.Context, id string, amount int) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return nil, r.writeErr
	}
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrSweetNotFound
	}
	s.Quantity += amount
	clone := *s
	return &clone, nil
}

func (r *stubSweetRepo) quantity(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Quantity
}

type stubMovements struct {
	mu    sync.Mutex
	items []domain.StockMovement
}

func (m *stubMovements) Insert(_ context.Context, mv *domain.StockMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, *mv)
	return nil
}

func (m *stubMovements) ListBySweet(_ context.Context, sweetID string, limit int) ([]*domain.StockMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StockMovement
	for i := range m.items {
		if m.items[i].SweetID == sweetID {
			mv := m.items[i]
			out = append(out, &mv)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Enqueue makes stubMovements a synchronous publisher as well.
func (m *stubMovements) Enqueue(mv domain.StockMovement) {
	_ = m.Insert(context.Background(), &mv)
}

func (m *stubMovements) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type stubIdempotency struct {
	mu       sync.Mutex
	keys     map[string]bool
	claimErr error
	released []string
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]bool)}
}

func (s *stubIdempotency) Claim(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimErr != nil {
		return false, s.claimErr
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *stubIdempotency) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	s.released = append(s.released, key)
	return nil
}
