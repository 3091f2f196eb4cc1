package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

var (
	customer = ports.Caller{UserID: "u1", Role: domain.RoleUser}
	admin    = ports.Caller{UserID: "u9", Role: domain.RoleAdmin}
)

type ledgerFixture struct {
	svc       *SweetService
	repo      *stubSweetRepo
	movements *stubMovements
	idem      *stubIdempotency
}

func newLedger() ledgerFixture {
	repo := newStubSweetRepo()
	movements := &stubMovements{}
	idem := newStubIdempotency()
	svc := NewSweetService(repo, movements, movements, idem, zerolog.Nop())
	return ledgerFixture{svc: svc, repo: repo, movements: movements, idem: idem}
}

func (f ledgerFixture) create(t *testing.T, name string, qty int) *domain.Sweet {
	t.Helper()
	s, err := f.svc.Create(context.Background(), ports.SweetInput{
		Name:     name,
		Category: domain.CategoryChocolate,
		Price:    2.5,
		Quantity: qty,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return s
}

func TestSweetService_Create_Defaults(t *testing.T) {
	f := newLedger()
	s := f.create(t, "  Dark Bar ", 10)

	if s.ID == "" {
		t.Fatalf("expected an id")
	}
	if s.Name != "Dark Bar" {
		t.Fatalf("expected trimmed name, got %q", s.Name)
	}
	if s.ImageURL != domain.DefaultImageURL {
		t.Fatalf("expected default image, got %q", s.ImageURL)
	}
	if s.CreatedAt.IsZero() || !s.CreatedAt.Equal(s.UpdatedAt) {
		t.Fatalf("expected timestamps to be set")
	}
}

func TestSweetService_Create_Validation(t *testing.T) {
	f := newLedger()
	_, err := f.svc.Create(context.Background(), ports.SweetInput{
		Name:     "",
		Category: "Vegetables",
		Price:    -1,
		Quantity: -1,
	})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
	want := "Please provide a sweet name, Please select a valid category, Price cannot be negative, Quantity cannot be negative"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

// Purchase of 3 from 10 leaves 7; a purchase of 15 then fails and leaves 7.
func TestSweetService_Purchase_InsufficientStock(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Toffee", 10)

	got, err := f.svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: s.ID, Amount: 3, Caller: customer})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if got.Quantity != 7 {
		t.Fatalf("expected 7 left, got %d", got.Quantity)
	}

	_, err = f.svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: s.ID, Amount: 15, Caller: customer})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if q := f.repo.quantity(s.ID); q != 7 {
		t.Fatalf("stock must be unchanged at 7, got %d", q)
	}
}

func TestSweetService_Purchase_InvalidAmount(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Toffee", 10)

	for _, amount := range []int{0, -2} {
		_, err := f.svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: s.ID, Amount: amount, Caller: customer})
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if q := f.repo.quantity(s.ID); q != 10 {
		t.Fatalf("stock must be unchanged, got %d", q)
	}
}

func TestSweetService_Purchase_NotFound(t *testing.T) {
	f := newLedger()
	_, err := f.svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: "missing", Amount: 1, Caller: customer})
	if !errors.Is(err, domain.ErrSweetNotFound) {
		t.Fatalf("expected ErrSweetNotFound, got %v", err)
	}
}

// N concurrent purchases of the same amount against stock S succeed exactly
// floor(S/amount) times and never drive the stock negative.
func TestSweetService_Purchase_Concurrent(t *testing.T) {
	cases := []struct{ stock, amount, callers int }{
		{10, 1, 50},
		{10, 3, 20},
		{7, 7, 8},
		{5, 6, 4},
	}
	for _, tc := range cases {
		f := newLedger()
		s := f.create(t, "Gummy Bears", tc.stock)

		var (
			wg        sync.WaitGroup
			succeeded atomic.Int64
			start     = make(chan struct{})
		)
		for i := 0; i < tc.callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := f.svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: s.ID, Amount: tc.amount, Caller: customer})
				switch {
				case err == nil:
					succeeded.Add(1)
				case !errors.Is(err, domain.ErrInsufficientStock):
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		want := int64(tc.stock / tc.amount)
		if int64(tc.callers) < want {
			want = int64(tc.callers)
		}
		if got := succeeded.Load(); got != want {
			t.Fatalf("stock %d amount %d: expected %d successes, got %d", tc.stock, tc.amount, want, got)
		}
		if q := f.repo.quantity(s.ID); q != tc.stock-int(want)*tc.amount || q < 0 {
			t.Fatalf("stock %d amount %d: unexpected final quantity %d", tc.stock, tc.amount, q)
		}
	}
}

func TestSweetService_Purchase_IdempotencyReplay(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Toffee", 10)
	in := ports.PurchaseInput{SweetID: s.ID, Amount: 2, Caller: customer, IdempotencyKey: "k1"}

	if _, err := f.svc.Purchase(context.Background(), in); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := f.svc.Purchase(context.Background(), in); !errors.Is(err, domain.ErrDuplicateRequest) {
		t.Fatalf("expected ErrDuplicateRequest, got %v", err)
	}
	if q := f.repo.quantity(s.ID); q != 8 {
		t.Fatalf("replay must not touch stock, got %d", q)
	}

	// Keys are scoped per caller.
	other := in
	other.Caller = ports.Caller{UserID: "u2", Role: domain.RoleUser}
	if _, err := f.svc.Purchase(context.Background(), other); err != nil {
		t.Fatalf("same key from another caller: %v", err)
	}
}

func TestSweetService_Purchase_FailureReleasesKey(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Toffee", 1)
	in := ports.PurchaseInput{SweetID: s.ID, Amount: 5, Caller: customer, IdempotencyKey: "k1"}

	if _, err := f.svc.Purchase(context.Background(), in); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if len(f.idem.released) != 1 || f.idem.released[0] != "purchase:u1:k1" {
		t.Fatalf("expected the key to be released, got %v", f.idem.released)
	}

	in.Amount = 1
	if _, err := f.svc.Purchase(context.Background(), in); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestSweetService_Purchase_IdempotencyStoreDown(t *testing.T) {
	f := newLedger()
	f.idem.claimErr = errors.New("redis down")
	s := f.create(t, "Toffee", 10)

	_, err := f.svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: s.ID, Amount: 1, Caller: customer, IdempotencyKey: "k1"})
	if err != nil {
		t.Fatalf("purchase must proceed when the store fails: %v", err)
	}
}

func TestSweetService_Restock(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Lolly", 2)

	got, err := f.svc.Restock(context.Background(), ports.RestockInput{SweetID: s.ID, Amount: 5, Caller: admin})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if got.Quantity != 7 {
		t.Fatalf("expected 7, got %d", got.Quantity)
	}

	if _, err := f.svc.Restock(context.Background(), ports.RestockInput{SweetID: s.ID, Amount: 0, Caller: admin}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.svc.Restock(context.Background(), ports.RestockInput{SweetID: "missing", Amount: 1, Caller: admin}); !errors.Is(err, domain.ErrSweetNotFound) {
		t.Fatalf("expected ErrSweetNotFound, got %v", err)
	}
}

func TestSweetService_Movements(t *testing.T) {
	f := newLedger()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	s := f.create(t, "Fudge", 5)

	if _, err := f.svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: s.ID, Amount: 2, Caller: customer}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := f.svc.Restock(context.Background(), ports.RestockInput{SweetID: s.ID, Amount: 4, Caller: admin}); err != nil {
		t.Fatalf("restock: %v", err)
	}
	_, _ = f.svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: s.ID, Amount: 100, Caller: customer})

	got, err := f.svc.Movements(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("failed purchases must not be recorded, got %d movements", len(got))
	}
	if got[0].Kind != domain.MovementRestock || got[0].Remaining != 7 || got[0].UserID != "u9" {
		t.Fatalf("unexpected newest movement %+v", got[0])
	}
	if got[1].Kind != domain.MovementPurchase || got[1].Amount != 2 || got[1].Remaining != 3 {
		t.Fatalf("unexpected oldest movement %+v", got[1])
	}

	if _, err := f.svc.Movements(context.Background(), "missing"); !errors.Is(err, domain.ErrSweetNotFound) {
		t.Fatalf("expected ErrSweetNotFound, got %v", err)
	}
}

func TestSweetService_Update(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Old Name", 4)

	name := "  New Name "
	price := 9.99
	got, err := f.svc.Update(context.Background(), s.ID, domain.SweetPatch{Name: &name, Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "New Name" || got.Price != 9.99 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Quantity != 4 || got.Category != domain.CategoryChocolate {
		t.Fatalf("unpatched fields must be kept, got %+v", got)
	}
	if f.repo.lastPatch.Category != nil || f.repo.lastPatch.Description != nil {
		t.Fatalf("only patched attributes may be written, got %+v", f.repo.lastPatch)
	}
}

func TestSweetService_Update_Invalid(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Bar", 4)

	bad := domain.Category("Vegetables")
	negative := -1.0
	_, err := f.svc.Update(context.Background(), s.ID, domain.SweetPatch{Category: &bad, Price: &negative})
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}

	stored, _ := f.svc.Get(context.Background(), s.ID)
	if stored.Category != domain.CategoryChocolate || stored.Price != 2.5 {
		t.Fatalf("rejected update must not be stored, got %+v", stored)
	}

	if _, err := f.svc.Update(context.Background(), "missing", domain.SweetPatch{}); !errors.Is(err, domain.ErrSweetNotFound) {
		t.Fatalf("expected ErrSweetNotFound, got %v", err)
	}
}

func TestSweetService_Update_Quantity(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Bar", 4)

	qty := 12
	got, err := f.svc.Update(context.Background(), s.ID, domain.SweetPatch{Quantity: &qty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Quantity != 12 || f.repo.quantity(s.ID) != 12 {
		t.Fatalf("expected quantity 12, got %d (stored %d)", got.Quantity, f.repo.quantity(s.ID))
	}
	if f.repo.lastPatch.Quantity == nil || *f.repo.lastPatch.Quantity != 12 {
		t.Fatalf("quantity must be written, got %+v", f.repo.lastPatch)
	}

	negative := -3
	_, err = f.svc.Update(context.Background(), s.ID, domain.SweetPatch{Quantity: &negative})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) || ve.Message != "Quantity cannot be negative" {
		t.Fatalf("expected negative quantity rejection, got %v", err)
	}
	if q := f.repo.quantity(s.ID); q != 12 {
		t.Fatalf("rejected update changed stock to %d", q)
	}
}

func TestSweetService_Update_EmptyPatch(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Bar", 4)

	got, err := f.svc.Update(context.Background(), s.ID, domain.SweetPatch{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Bar" {
		t.Fatalf("expected current sweet, got %+v", got)
	}
}

func TestSweetService_Delete(t *testing.T) {
	f := newLedger()
	s := f.create(t, "Bar", 4)

	if err := f.svc.Delete(context.Background(), s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), s.ID); !errors.Is(err, domain.ErrSweetNotFound) {
		t.Fatalf("expected ErrSweetNotFound after delete, got %v", err)
	}
	if err := f.svc.Delete(context.Background(), s.ID); !errors.Is(err, domain.ErrSweetNotFound) {
		t.Fatalf("expected ErrSweetNotFound on second delete, got %v", err)
	}
}

func TestSweetService_Search(t *testing.T) {
	f := newLedger()
	ctx := context.Background()
	mk := func(name string, cat domain.Category, price float64) {
		if _, err := f.svc.Create(ctx, ports.SweetInput{Name: name, Category: cat, Price: price, Quantity: 1}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	mk("Milk Chocolate", domain.CategoryChocolate, 3)
	mk("Dark Chocolate", domain.CategoryChocolate, 5)
	mk("Sour Worms", domain.CategorySour, 2)

	all, _ := f.svc.List(ctx)
	if len(all) != 3 || all[0].Name != "Sour Worms" {
		t.Fatalf("expected newest first, got %d items", len(all))
	}

	empty, _ := f.svc.Search(ctx, ports.SweetFilter{Name: "   "})
	if len(empty) != 3 {
		t.Fatalf("blank filter must behave like list, got %d", len(empty))
	}

	cat := domain.CategoryChocolate
	lo, hi := 4.0, 5.0
	got, err := f.svc.Search(ctx, ports.SweetFilter{Name: "CHOC", Category: &cat, MinPrice: &lo, MaxPrice: &hi})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Dark Chocolate" {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestSweetService_WithoutOptionalCollaborators(t *testing.T) {
	repo := newStubSweetRepo()
	svc := NewSweetService(repo, nil, nil, nil, zerolog.Nop())

	s, err := svc.Create(context.Background(), ports.SweetInput{Name: "Bar", Category: domain.CategoryCandy, Quantity: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Purchase(context.Background(), ports.PurchaseInput{SweetID: s.ID, Amount: 1, Caller: customer, IdempotencyKey: "k"}); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	got, err := svc.Movements(context.Background(), s.ID)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty history, got %v, %v", got, err)
	}
}
