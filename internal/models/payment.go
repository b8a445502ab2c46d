package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordType tags a ledger row with the operation that produced it.
type RecordType string

const (
	RecordTypePayment  RecordType = "payment"
	RecordTypeRefund   RecordType = "refund"
	RecordTypeDiscount RecordType = "discount"
)

// PaymentRecord is an append-only ledger entry. Amount is positive for
// payments and negative for refunds and discounts.
type PaymentRecord struct {
	ID            string          `db:"id" json:"id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	RecordType    RecordType      `db:"record_type" json:"record_type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Operator      string          `db:"operator" json:"operator"`
	Notes         string          `db:"notes" json:"notes"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// PaymentRecordDetail adds the student name for ledger listings.
type PaymentRecordDetail struct {
	PaymentRecord
	StudentName string `db:"student_name" json:"student_name"`
}

// PaymentFilter captures list criteria for ledger rows.
type PaymentFilter struct {
	StudentID  string
	RecordType RecordType
	DateFrom   *time.Time
	DateTo     *time.Time
	ListOptions
}

// PaymentResult is returned by every financial mutation.
type PaymentResult struct {
	Student Student        `json:"student"`
	Record  *PaymentRecord `json:"record,omitempty"`
}
