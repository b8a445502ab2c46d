package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

const warningColumns = `id, student_id, subject, warning_type, failed_count, message, is_handled, handled_by, handled_at, handle_notes, created_at`

const warningDetailColumns = `w.id, w.student_id, w.subject, w.warning_type, w.failed_count, w.message, w.is_handled, w.handled_by, w.handled_at, w.handle_notes, w.created_at,
s.name AS student_name`

var warningSorts = map[string]string{
	"created_at":   "w.created_at",
	"failed_count": "w.failed_count",
}

// ExamWarningRepository reads warning logs and records their handling.
type ExamWarningRepository struct {
	db *sqlx.DB
}

// NewExamWarningRepository constructs the repository.
func NewExamWarningRepository(db *sqlx.DB) *ExamWarningRepository {
	return &ExamWarningRepository{db: db}
}

// List returns warnings matching the filter with the total count.
func (r *ExamWarningRepository) List(ctx context.Context, filter models.ExamWarningFilter) ([]models.ExamWarningDetail, int, error) {
	var where whereBuilder
	if filter.StudentID != "" {
		where.add("w.student_id = $%d", filter.StudentID)
	}
	if filter.WarningType != "" {
		where.add("w.warning_type = $%d", filter.WarningType)
	}
	if filter.IsHandled != nil {
		where.add("w.is_handled = $%d", *filter.IsHandled)
	}

	query := `SELECT ` + warningDetailColumns + ` FROM exam_warning_logs w JOIN students s ON s.id = w.student_id` + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, warningSorts, "created_at") + pageClause(filter.ListOptions)
	var warnings []models.ExamWarningDetail
	if err := r.db.SelectContext(ctx, &warnings, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list exam warnings: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM exam_warning_logs w`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count exam warnings: %w", err)
	}
	return warnings, total, nil
}

// FindByID returns a warning by ID.
func (r *ExamWarningRepository) FindByID(ctx context.Context, id string) (*models.ExamWarningLog, error) {
	var warning models.ExamWarningLog
	if err := r.db.GetContext(ctx, &warning, `SELECT `+warningColumns+` FROM exam_warning_logs WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &warning, nil
}

// MarkHandled flags an unhandled warning as handled. Warnings that were
// already handled are left untouched and reported via ErrRecordLocked.
func (r *ExamWarningRepository) MarkHandled(ctx context.Context, id, handledBy, notes string, at time.Time) error {
	const query = `UPDATE exam_warning_logs SET is_handled = TRUE, handled_by = $2, handled_at = $3, handle_notes = $4 WHERE id = $1 AND is_handled = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, handledBy, at, notes)
	if err != nil {
		return fmt.Errorf("mark warning handled: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRecordLocked
	}
	return nil
}

func insertWarningTx(ctx context.Context, tx *sqlx.Tx, warning *models.ExamWarningLog) error {
	if warning.ID == "" {
		warning.ID = uuid.NewString()
	}
	if warning.CreatedAt.IsZero() {
		warning.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_warning_logs (id, student_id, subject, warning_type, failed_count, message, is_handled, created_at)
VALUES (:id, :student_id, :subject, :warning_type, :failed_count, :message, :is_handled, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, warning); err != nil {
		return fmt.Errorf("insert exam warning: %w", err)
	}
	return nil
}
