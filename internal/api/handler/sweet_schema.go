package handler

import (
	"math"
	"strconv"
	"strings"

	"github.com/sweetshop/sweet-shop/internal/core/domain"
	"github.com/sweetshop/sweet-shop/internal/core/ports"
)

// maxAdjustment bounds a single purchase or restock.
const maxAdjustment = 1_000_000

type createSweetRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Category    string   `json:"category" validate:"required,category"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Quantity    *int     `json:"quantity" validate:"required,gte=0"`
	Description string   `json:"description" validate:"max=500"`
	ImageURL    string   `json:"imageUrl"`
}

func (r createSweetRequest) toInput() ports.SweetInput {
	return ports.SweetInput{
		Name:        r.Name,
		Category:    domain.Category(r.Category),
		Price:       *r.Price,
		Quantity:    *r.Quantity,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
}

// updateSweetRequest lists the patchable attributes. Absent fields keep
// their stored value.
type updateSweetRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=100"`
	Category    *string  `json:"category" validate:"omitempty,category"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Quantity    *int     `json:"quantity" validate:"omitempty,gte=0"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	ImageURL    *string  `json:"imageUrl"`
}

func (r updateSweetRequest) toPatch() domain.SweetPatch {
	patch := domain.SweetPatch{
		Name:        r.Name,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}
	if r.Category != nil {
		cat := domain.Category(*r.Category)
		patch.Category = &cat
	}
	return patch
}

// stockRequest is the body of purchase and restock. Quantity is decoded
// loosely so that strings and fractions map to an invalid amount instead of
// a decoding failure.
type stockRequest struct {
	Quantity any `json:"quantity"`
}

// amount returns the requested quantity as a positive integer.
func (r stockRequest) amount() (int, error) {
	n, ok := r.Quantity.(float64)
	if !ok || math.IsNaN(n) || n != math.Trunc(n) || n <= 0 || n > maxAdjustment {
		return 0, domain.ErrInvalidAmount
	}
	return int(n), nil
}

type searchParams struct {
	Name     string
	Category string
	MinPrice string
	MaxPrice string
}

func (p searchParams) toFilter() (ports.SweetFilter, error) {
	var (
		f    ports.SweetFilter
		msgs []string
	)
	f.Name = strings.TrimSpace(p.Name)
	if c := strings.TrimSpace(p.Category); c != "" {
		cat := domain.Category(c)
		f.Category = &cat
	}
	if v, ok, err := parsePrice(p.MinPrice); err != nil {
		msgs = append(msgs, "minPrice must be a number")
	} else if ok {
		f.MinPrice = &v
	}
	if v, ok, err := parsePrice(p.MaxPrice); err != nil {
		msgs = append(msgs, "maxPrice must be a number")
	} else if ok {
		f.MaxPrice = &v
	}
	if len(msgs) > 0 {
		return ports.SweetFilter{}, domain.NewValidationError(strings.Join(msgs, ", "))
	}
	return f, nil
}

func parsePrice(raw string) (float64, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, strconv.ErrSyntax
	}
	return v, true, nil
}

type deleteResponse struct{}
