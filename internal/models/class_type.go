package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassType is a priced course package students enroll into.
type ClassType struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Description string          `db:"description" json:"description"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ClassTypePriceLog records a price change for a class type.
type ClassTypePriceLog struct {
	ID          string          `db:"id" json:"id"`
	ClassTypeID string          `db:"class_type_id" json:"class_type_id"`
	OldPrice    decimal.Decimal `db:"old_price" json:"old_price"`
	NewPrice    decimal.Decimal `db:"new_price" json:"new_price"`
	Operator    string          `db:"operator" json:"operator"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// ClassTypeFilter captures list criteria for class types.
type ClassTypeFilter struct {
	Search string
	Active *bool
	ListOptions
}
