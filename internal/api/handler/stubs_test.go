package handler

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/sweet-shop/internal/api/middleware"
	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	verifyFn   func(ctx context.Context, email, password string) (*domain.User, error)
	findFn     func(ctx context.Context, id string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	return s.verifyFn(ctx, email, password)
}

func (s *stubAuthService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findFn(ctx, id)
}

func (s *stubAuthService) PromoteToAdmin(context.Context, string) (*domain.User, bool, error) {
	return nil, false, nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(userID string) (string, error) { return "token-" + userID, nil }

type stubSweetService struct {
	createFn    func(ctx context.Context, in ports.SweetInput) (*domain.Sweet, error)
	getFn       func(ctx context.Context, id string) (*domain.Sweet, error)
	listFn      func(ctx context.Context) ([]*domain.Sweet, error)
	searchFn    func(ctx context.Context, f ports.SweetFilter) ([]*domain.Sweet, error)
	updateFn    func(ctx context.Context, id string, p domain.SweetPatch) (*domain.Sweet, error)
	deleteFn    func(ctx context.Context, id string) error
	purchaseFn  func(ctx context.Context, in ports.PurchaseInput) (*domain.Sweet, error)
	restockFn   func(ctx context.Context, in ports.RestockInput) (*domain.Sweet, error)
	movementsFn func(ctx context.Context, id string) ([]*domain.StockMovement, error)
}

func (s *stubSweetService) Create(ctx context.Context, in ports.SweetInput) (*domain.Sweet, error) {
	return s.createFn(ctx, in)
}

func (s *stubSweetService) Get(ctx context.Context, id string) (*domain.Sweet, error) {
	return s.getFn(ctx, id)
}

func (s *stubSweetService) List(ctx context.Context) ([]*domain.Sweet, error) {
	return s.listFn(ctx)
}

func (s *stubSweetService) Search(ctx context.Context, f ports.SweetFilter) ([]*domain.Sweet, error) {
	return s.searchFn(ctx, f)
}

func (s *stubSweetService) Update(ctx context.Context, id string, p domain.SweetPatch) (*domain.Sweet, error) {
	return s.updateFn(ctx, id, p)
}

func (s *stubSweetService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubSweetService) Purchase(ctx context.Context, in ports.PurchaseInput) (*domain.Sweet, error) {
	return s.purchaseFn(ctx, in)
}

func (s *stubSweetService) Restock(ctx context.Context, in ports.RestockInput) (*domain.Sweet, error) {
	return s.restockFn(ctx, in)
}

func (s *stubSweetService) Movements(ctx context.Context, id string) ([]*domain.StockMovement, error) {
	return s.movementsFn(ctx, id)
}

// newJSONContext builds an echo context for method/target with an optional
// JSON body and the given caller attached.
func newJSONContext(method, target, body string, caller *ports.Caller) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != nil {
		middleware.SetCaller(c, *caller)
	}
	return c, rec
}

// httpCode extracts the status of an *echo.HTTPError, or 0.
func httpCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}
