package domain

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Category is the product family a sweet is listed under.
type Category string

const (
	CategoryChocolate Category = "Chocolate"
	CategoryCandy     Category = "Candy"
	CategoryGummies   Category = "Gummies"
	CategoryLollipop  Category = "Lollipop"
	CategoryHardCandy Category = "Hard Candy"
	CategorySour      Category = "Sour"
	CategoryOther     Category = "Other"
)

var categories = []Category{
	CategoryChocolate,
	CategoryCandy,
	CategoryGummies,
	CategoryLollipop,
	CategoryHardCandy,
	CategorySour,
	CategoryOther,
}

// Categories returns the accepted categories in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is one of the accepted categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	DefaultImageURL      = "https://via.placeholder.com/300x300?text=Sweet"
)

var (
	ErrSweetNotFound     = errors.New("sweet not found")
	ErrInvalidAmount     = errors.New("please provide a valid quantity")
	ErrInsufficientStock = errors.New("insufficient quantity in stock")
)

// Sweet is a catalog item together with its stock level.
//
// Quantity never goes below zero. After creation it changes through purchase,
// restock or an explicit update.
type Sweet struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	Price       float64   `json:"price"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// InStock reports whether at least one unit is available.
func (s *Sweet) InStock() bool {
	return s.Quantity > 0
}

// Validate checks every field constraint and reports all violations at once.
func (s *Sweet) Validate() error {
	var msgs []string

	name := strings.TrimSpace(s.Name)
	switch {
	case name == "":
		msgs = append(msgs, "Please provide a sweet name")
	case utf8.RuneCountInString(name) > MaxNameLength:
		msgs = append(msgs, "Name cannot be more than 100 characters")
	}
	if !s.Category.Valid() {
		msgs = append(msgs, "Please select a valid category")
	}
	if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) {
		msgs = append(msgs, "Please provide a price")
	} else if s.Price < 0 {
		msgs = append(msgs, "Price cannot be negative")
	}
	if s.Quantity < 0 {
		msgs = append(msgs, "Quantity cannot be negative")
	}
	if utf8.RuneCountInString(s.Description) > MaxDescriptionLength {
		msgs = append(msgs, "Description cannot be more than 500 characters")
	}

	if len(msgs) > 0 {
		return NewValidationError(strings.Join(msgs, ", "))
	}
	return nil
}

// SweetPatch lists the attributes an update may change. Nil fields keep
// their stored value. Identity and timestamps are not patchable.
type SweetPatch struct {
	Name        *string
	Category    *Category
	Price       *float64
	Quantity    *int
	Description *string
	ImageURL    *string
}

// Empty reports whether the patch changes nothing.
func (p SweetPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil &&
		p.Quantity == nil && p.Description == nil && p.ImageURL == nil
}

// Apply returns a copy of s with the patch merged in.
func (p SweetPatch) Apply(s Sweet) Sweet {
	if p.Name != nil {
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.Price != nil {
		s.Price = *p.Price
	}
	if p.Quantity != nil {
		s.Quantity = *p.Quantity
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.ImageURL != nil {
		s.ImageURL = *p.ImageURL
		if s.ImageURL == "" {
			s.ImageURL = DefaultImageURL
		}
	}
	return s
}

// ValidateAmount rejects non-positive stock adjustments.
func ValidateAmount(amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
