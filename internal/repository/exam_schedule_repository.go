package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

const examScheduleColumns = `id, subject, exam_date, location, capacity, arranged_count, notes, created_at, updated_at`

var examScheduleSorts = map[string]string{
	"exam_date":  "exam_date",
	"subject":    "subject",
	"capacity":   "capacity",
	"created_at": "created_at",
}

// ExamScheduleRepository persists exam sessions and their seat accounting.
type ExamScheduleRepository struct {
	db *sqlx.DB
}

// NewExamScheduleRepository constructs the repository.
func NewExamScheduleRepository(db *sqlx.DB) *ExamScheduleRepository {
	return &ExamScheduleRepository{db: db}
}

// List returns schedules matching the filter with the total count.
func (r *ExamScheduleRepository) List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamSchedule, int, error) {
	var where whereBuilder
	if filter.Subject != 0 {
		where.add("subject = $%d", filter.Subject)
	}
	if filter.DateFrom != nil {
		where.add("exam_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where.add("exam_date <= $%d", *filter.DateTo)
	}

	query := `SELECT ` + examScheduleColumns + ` FROM exam_schedules` + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, examScheduleSorts, "exam_date") + pageClause(filter.ListOptions)
	var schedules []models.ExamSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list exam schedules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM exam_schedules`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count exam schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID returns a schedule by ID.
func (r *ExamScheduleRepository) FindByID(ctx context.Context, id string) (*models.ExamSchedule, error) {
	var schedule models.ExamSchedule
	if err := r.db.GetContext(ctx, &schedule, `SELECT `+examScheduleColumns+` FROM exam_schedules WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create inserts a schedule with no seats taken.
func (r *ExamScheduleRepository) Create(ctx context.Context, schedule *models.ExamSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	schedule.ArrangedCount = 0
	schedule.CreatedAt = now
	schedule.UpdatedAt = now
	const query = `INSERT INTO exam_schedules (id, subject, exam_date, location, capacity, arranged_count, notes, created_at, updated_at)
VALUES (:id, :subject, :exam_date, :location, :capacity, :arranged_count, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create exam schedule: %w", err)
	}
	return nil
}

// Update writes the editable fields. The update only applies while the new
// capacity still covers the seats already arranged.
func (r *ExamScheduleRepository) Update(ctx context.Context, schedule *models.ExamSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exam_schedules SET subject = $2, exam_date = $3, location = $4, capacity = $5, notes = $6, updated_at = $7
WHERE id = $1 AND arranged_count <= $5`
	res, err := r.db.ExecContext(ctx, query, schedule.ID, schedule.Subject, schedule.ExamDate, schedule.Location,
		schedule.Capacity, schedule.Notes, schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update exam schedule: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrCapacityBelowArranged
	}
	return nil
}

// Delete removes a schedule.
func (r *ExamScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exam_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exam schedule: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountRegistrations returns how many registrations reference the schedule.
func (r *ExamScheduleRepository) CountRegistrations(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM exam_registrations WHERE schedule_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count schedule registrations: %w", err)
	}
	return count, nil
}

func findScheduleTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.ExamSchedule, error) {
	var schedule models.ExamSchedule
	if err := tx.GetContext(ctx, &schedule, `SELECT `+examScheduleColumns+` FROM exam_schedules WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load exam schedule: %w", err)
	}
	return &schedule, nil
}
