package api

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

// memUsers is an in-memory ports.UserRepository.
type memUsers struct {
	mu    sync.Mutex
	seq   int
	byID  map[string]*domain.User
	email map[string]string
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*domain.User{}, email: map[string]string{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.email[u.Email]; taken {
		return nil, domain.ErrDuplicateEmail
	}
	m.seq++
	cp := *u
	cp.ID = "user-" + strconv.Itoa(m.seq)
	m.byID[cp.ID] = &cp
	m.email[cp.Email] = cp.ID
	out := cp
	return &out, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.email[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *m.byID[id]
	return &out, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *memUsers) UpdateRole(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	out := *u
	return &out, nil
}

// memSweets is an in-memory ports.SweetRepository.
type memSweets struct {
	mu    sync.Mutex
	seq   int
	order []string
	byID  map[string]*domain.Sweet
}

func newMemSweets() *memSweets {
	return &memSweets{byID: map[string]*domain.Sweet{}}
}

func (m *memSweets) Create(_ context.Context, s *domain.Sweet) (*domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	cp := *s
	cp.ID = "sweet-" + strconv.Itoa(m.seq)
	m.byID[cp.ID] = &cp
	m.order = append(m.order, cp.ID)
	out := cp
	return &out, nil
}

func (m *memSweets) FindByID(_ context.Context, id string) (*domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrSweetNotFound
	}
	out := *s
	return &out, nil
}

func (m *memSweets) List(_ context.Context, f ports.SweetFilter) ([]*domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Sweet
	for i := len(m.order) - 1; i >= 0; i-- {
		s, ok := m.byID[m.order[i]]
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
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memSweets) Update(_ context.Context, id string, p domain.SweetPatch) (*domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrSweetNotFound
	}
	updated := p.Apply(*s)
	m.byID[id] = &updated
	out := updated
	return &out, nil
}

func (m *memSweets) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrSweetNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memSweets) DecreaseQuantity(_ context.Context, id string, amount int) (*domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrSweetNotFound
	}
	if s.Quantity < amount {
		return nil, domain.ErrInsufficientStock
	}
	s.Quantity -= amount
	out := *s
	return &out, nil
}

func (m *memSweets) IncreaseQuantity(_ context.Context, id string, amount int) (*domain.Sweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrSweetNotFound
	}
	s.Quantity += amount
	out := *s
	return &out, nil
}
