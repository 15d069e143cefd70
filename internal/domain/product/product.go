package product

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/ec-orders/internal/apperr"
	"github.com/google/uuid"
)

var (
	ErrProductNotFound    = apperr.New(apperr.NotFound, "product not found")
	ErrProductExists      = apperr.New(apperr.Conflict, "product already exists")
	ErrInvalidName        = apperr.New(apperr.Validation, "name must be between 2 and 50 characters")
	ErrInvalidDescription = apperr.New(apperr.Validation, "description must be between 2 and 200 characters")
	ErrInvalidPrice       = apperr.New(apperr.Validation, "price must not be negative")
	ErrInvalidStock       = apperr.New(apperr.Validation, "stock must not be negative")
	ErrEmptyUpdate        = apperr.New(apperr.Validation, "at least one field must be provided to update")
)

const (
	minNameLength        = 2
	maxNameLength        = 50
	minDescriptionLength = 2
	maxDescriptionLength = 200
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// View is the read projection of a product without audit timestamps.
type View struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// Patch holds the fields of a partial update; nil fields are left unchanged.
type Patch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Stock == nil
}

// New validates and builds a product. Name and description are trimmed.
func New(name, description string, price float64, stock int, now time.Time) (*Product, error) {
	p := &Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Price:       price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) Validate() error {
	if n := utf8.RuneCountInString(p.Name); n < minNameLength || n > maxNameLength {
		return ErrInvalidName
	}
	if n := utf8.RuneCountInString(p.Description); n < minDescriptionLength || n > maxDescriptionLength {
		return ErrInvalidDescription
	}
	if p.Price < 0 {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// Apply returns a copy of p with the patch applied and validated. p is not modified.
func (p *Product) Apply(patch Patch, now time.Time) (*Product, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyUpdate
	}
	next := *p
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		next.Price = *patch.Price
	}
	if patch.Stock != nil {
		next.Stock = *patch.Stock
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = now
	return &next, nil
}

func (p *Product) View() View {
	return View{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}
