package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

// DashboardRepository aggregates back office figures.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary returns student counts per payment status, money totals and open exam issues.
func (r *DashboardRepository) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	const query = `SELECT
COUNT(*) AS total_students,
COUNT(*) FILTER (WHERE payment_status = $1) AS unpaid_students,
COUNT(*) FILTER (WHERE payment_status = $2) AS partial_students,
COUNT(*) FILTER (WHERE payment_status = $3) AS paid_students,
COUNT(*) FILTER (WHERE payment_status = $4) AS refunded_students,
COALESCE(SUM(contract_amount), 0) AS contract_total,
COALESCE(SUM(actual_amount), 0) AS actual_total,
COALESCE(SUM(discount_amount), 0) AS discount_total,
COALESCE(SUM(debt_amount), 0) AS debt_total,
(SELECT COUNT(*) FROM exam_warning_logs WHERE is_handled = FALSE) AS unhandled_warnings,
(SELECT COUNT(*) FROM student_exam_progress WHERE exam_qualification = $5) AS revoked_qualifications
FROM students`
	var summary models.DashboardSummary
	if err := r.db.GetContext(ctx, &summary, query,
		models.PaymentStatusUnpaid, models.PaymentStatusPartial, models.PaymentStatusPaid, models.PaymentStatusRefunded,
		models.QualificationRevoked); err != nil {
		return nil, fmt.Errorf("load dashboard summary: %w", err)
	}
	return &summary, nil
}
