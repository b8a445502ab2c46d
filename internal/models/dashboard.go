package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardSummary is the back office overview.
type DashboardSummary struct {
	TotalStudents         int             `db:"total_students" json:"total_students"`
	UnpaidStudents        int             `db:"unpaid_students" json:"unpaid_students"`
	PartialStudents       int             `db:"partial_students" json:"partial_students"`
	PaidStudents          int             `db:"paid_students" json:"paid_students"`
	RefundedStudents      int             `db:"refunded_students" json:"refunded_students"`
	ContractTotal         decimal.Decimal `db:"contract_total" json:"contract_total"`
	ActualTotal           decimal.Decimal `db:"actual_total" json:"actual_total"`
	DiscountTotal         decimal.Decimal `db:"discount_total" json:"discount_total"`
	DebtTotal             decimal.Decimal `db:"debt_total" json:"debt_total"`
	UnhandledWarnings     int             `db:"unhandled_warnings" json:"unhandled_warnings"`
	RevokedQualifications int             `db:"revoked_qualifications" json:"revoked_qualifications"`
	GeneratedAt           time.Time       `db:"-" json:"generated_at"`
}
