package dto

import "github.com/shopspring/decimal"

// CreateClassTypeRequest describes payload for creating a class type.
type CreateClassTypeRequest struct {
	Name        string          `json:"name" validate:"required,max=64"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Active      *bool           `json:"active"`
}

// UpdateClassTypeRequest updates descriptive fields only; price has its own endpoint.
type UpdateClassTypeRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// UpdatePriceRequest changes the list price of a class type.
type UpdatePriceRequest struct {
	Price    decimal.Decimal `json:"price"`
	Operator string          `json:"-"`
}
