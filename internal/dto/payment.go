package dto

import "github.com/shopspring/decimal"

// RecordPaymentRequest records money received from a student.
type RecordPaymentRequest struct {
	StudentID     string          `json:"student_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	PaymentMethod string          `json:"payment_method" validate:"required,max=32"`
	Notes         string          `json:"notes"`
	Operator      string          `json:"-"`
}

// RefundRequest returns money to a student.
type RefundRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes"`
	Operator  string          `json:"-"`
}

// DiscountRequest waives part of a student's contract.
type DiscountRequest struct {
	StudentID string          `json:"student_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes"`
	Operator  string          `json:"-"`
}
