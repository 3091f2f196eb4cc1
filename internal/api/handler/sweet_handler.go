package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sweetshop/sweet-shop/internal/api/metrics"
	"github.com/sweetshop/sweet-shop/internal/api/middleware"
	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

// SweetHandler handles HTTP requests for the inventory.
type SweetHandler struct {
	service ports.SweetService
}

func NewSweetHandler(service ports.SweetService) *SweetHandler {
	return &SweetHandler{service: service}
}

// List handles GET /api/sweets.
//
// @Summary      List sweets
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Envelope{data=[]domain.Sweet}
// @Failure      401  {object}  Envelope
// @Router       /api/sweets [get]
func (h *SweetHandler) List(c echo.Context) error {
	sweets, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return respondList(c, http.StatusOK, sweets)
}

// Search handles GET /api/sweets/search.
//
// @Summary      Search sweets
// @Description  All given predicates must match. Name matches a case-insensitive substring.
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Param        name      query     string  false  "Part of the name"
// @Param        category  query     string  false  "Exact category"
// @Param        minPrice  query     number  false  "Lowest price, inclusive"
// @Param        maxPrice  query     number  false  "Highest price, inclusive"
// @Success      200       {object}  Envelope{data=[]domain.Sweet}
// @Failure      400       {object}  Envelope
// @Failure      401       {object}  Envelope
// @Router       /api/sweets/search [get]
func (h *SweetHandler) Search(c echo.Context) error {
	filter, err := searchParams{
		Name:     c.QueryParam("name"),
		Category: c.QueryParam("category"),
		MinPrice: c.QueryParam("minPrice"),
		MaxPrice: c.QueryParam("maxPrice"),
	}.toFilter()
	if err != nil {
		return err
	}

	sweets, err := h.service.Search(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respondList(c, http.StatusOK, sweets)
}

// Create handles POST /api/sweets.
//
// @Summary      Add a sweet
// @Tags         sweets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createSweetRequest  true  "Sweet details"
// @Success      201   {object}  Envelope{data=domain.Sweet}
// @Failure      400   {object}  Envelope
// @Failure      401   {object}  Envelope
// @Router       /api/sweets [post]
func (h *SweetHandler) Create(c echo.Context) error {
	var req createSweetRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sweet, err := h.service.Create(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, sweet, "")
}

// Get handles GET /api/sweets/:id.
//
// @Summary      Get a sweet
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sweet id"
// @Success      200  {object}  Envelope{data=domain.Sweet}
// @Failure      401  {object}  Envelope
// @Failure      404  {object}  Envelope
// @Router       /api/sweets/{id} [get]
func (h *SweetHandler) Get(c echo.Context) error {
	sweet, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, sweet, "")
}

// Update handles PUT /api/sweets/:id.
//
// @Summary      Update a sweet
// @Description  Only the given attributes change.
// @Tags         sweets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Sweet id"
// @Param        body  body      updateSweetRequest  true  "Attributes to change"
// @Success      200   {object}  Envelope{data=domain.Sweet}
// @Failure      400   {object}  Envelope
// @Failure      401   {object}  Envelope
// @Failure      404   {object}  Envelope
// @Router       /api/sweets/{id} [put]
func (h *SweetHandler) Update(c echo.Context) error {
	var req updateSweetRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody(err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	sweet, err := h.service.Update(c.Request().Context(), c.Param("id"), req.toPatch())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, sweet, "")
}

// Delete handles DELETE /api/sweets/:id.
//
// @Summary      Delete a sweet
// @Tags         sweets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sweet id"
// @Success      200  {object}  Envelope
// @Failure      401  {object}  Envelope
// @Failure      403  {object}  Envelope
// @Failure      404  {object}  Envelope
// @Router       /api/sweets/{id} [delete]
func (h *SweetHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return respond(c, http.StatusOK, deleteResponse{}, "Sweet deleted successfully")
}

// Purchase handles POST /api/sweets/:id/purchase.
//
// @Summary      Purchase a sweet
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id               path      string        true   "Sweet id"
// @Param        Idempotency-Key  header    string        false  "Rejects a repeated purchase with the same key"
// @Param        body             body      stockRequest  true   "Units to buy"
// @Success      200              {object}  Envelope{data=domain.Sweet}
// @Failure      400              {object}  Envelope
// @Failure      401              {object}  Envelope
// @Failure      404              {object}  Envelope
// @Failure      409              {object}  Envelope
// @Router       /api/sweets/{id}/purchase [post]
func (h *SweetHandler) Purchase(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return domain.ErrUnauthenticated
	}

	var req stockRequest
	if err := c.Bind(&req); err != nil {
		metrics.PurchasesTotal.WithLabelValues("invalid_amount").Inc()
		return domain.ErrInvalidAmount
	}
	amount, err := req.amount()
	if err != nil {
		metrics.PurchasesTotal.WithLabelValues("invalid_amount").Inc()
		return err
	}

	sweet, err := h.service.Purchase(c.Request().Context(), ports.PurchaseInput{
		SweetID:        c.Param("id"),
		Amount:         amount,
		Caller:         caller,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		metrics.PurchasesTotal.WithLabelValues(stockResult(err)).Inc()
		return err
	}

	metrics.PurchasesTotal.WithLabelValues("ok").Inc()
	metrics.UnitsSoldTotal.Add(float64(amount))
	return respond(c, http.StatusOK, sweet, fmt.Sprintf("Successfully purchased %d %s", amount, sweet.Name))
}

// Restock handles POST /api/sweets/:id/restock.
//
// @Summary      Restock a sweet
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Sweet id"
// @Param        body  body      stockRequest  true  "Units to add"
// @Success      200   {object}  Envelope{data=domain.Sweet}
// @Failure      400   {object}  Envelope
// @Failure      401   {object}  Envelope
// @Failure      403   {object}  Envelope
// @Failure      404   {object}  Envelope
// @Router       /api/sweets/{id}/restock [post]
func (h *SweetHandler) Restock(c echo.Context) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return domain.ErrUnauthenticated
	}

	var req stockRequest
	if err := c.Bind(&req); err != nil {
		metrics.RestocksTotal.WithLabelValues("invalid_amount").Inc()
		return domain.ErrInvalidAmount
	}
	amount, err := req.amount()
	if err != nil {
		metrics.RestocksTotal.WithLabelValues("invalid_amount").Inc()
		return err
	}

	sweet, err := h.service.Restock(c.Request().Context(), ports.RestockInput{
		SweetID: c.Param("id"),
		Amount:  amount,
		Caller:  caller,
	})
	if err != nil {
		metrics.RestocksTotal.WithLabelValues(stockResult(err)).Inc()
		return err
	}

	metrics.RestocksTotal.WithLabelValues("ok").Inc()
	return respond(c, http.StatusOK, sweet, fmt.Sprintf("Successfully restocked %d %s", amount, sweet.Name))
}

// Movements handles GET /api/sweets/:id/movements.
//
// @Summary      Stock movements of a sweet
// @Description  Newest first, at most 100 entries.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Sweet id"
// @Success      200  {object}  Envelope{data=[]domain.StockMovement}
// @Failure      401  {object}  Envelope
// @Failure      403  {object}  Envelope
// @Failure      404  {object}  Envelope
// @Router       /api/sweets/{id}/movements [get]
func (h *SweetHandler) Movements(c echo.Context) error {
	movements, err := h.service.Movements(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respondList(c, http.StatusOK, movements)
}

func stockResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrSweetNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return "duplicate"
	default:
		return "error"
	}
}
