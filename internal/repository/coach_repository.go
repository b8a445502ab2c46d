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

const coachColumns = `id, name, phone, gender, license_no, teaching_subject, status, hire_date, notes, created_at, updated_at`

var coachSorts = map[string]string{
	"name":       "name",
	"hire_date":  "hire_date",
	"created_at": "created_at",
}

// CoachRepository persists coaches.
type CoachRepository struct {
	db *sqlx.DB
}

// NewCoachRepository constructs the repository.
func NewCoachRepository(db *sqlx.DB) *CoachRepository {
	return &CoachRepository{db: db}
}

// List returns coaches matching the filter with the total count.
func (r *CoachRepository) List(ctx context.Context, filter models.CoachFilter) ([]models.Coach, int, error) {
	var where whereBuilder
	if filter.Search != "" {
		where.add("(LOWER(name) LIKE $%[1]d OR phone LIKE $%[1]d)", likePattern(filter.Search))
	}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}

	query := `SELECT ` + coachColumns + ` FROM coaches` + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, coachSorts, "created_at") + pageClause(filter.ListOptions)
	var coaches []models.Coach
	if err := r.db.SelectContext(ctx, &coaches, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list coaches: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM coaches`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count coaches: %w", err)
	}
	return coaches, total, nil
}

// FindByID returns a coach by ID.
func (r *CoachRepository) FindByID(ctx context.Context, id string) (*models.Coach, error) {
	var coach models.Coach
	if err := r.db.GetContext(ctx, &coach, `SELECT `+coachColumns+` FROM coaches WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &coach, nil
}

// Create inserts a coach.
func (r *CoachRepository) Create(ctx context.Context, coach *models.Coach) error {
	if coach.ID == "" {
		coach.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	coach.CreatedAt = now
	coach.UpdatedAt = now
	const query = `INSERT INTO coaches (id, name, phone, gender, license_no, teaching_subject, status, hire_date, notes, created_at, updated_at)
VALUES (:id, :name, :phone, :gender, :license_no, :teaching_subject, :status, :hire_date, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, coach); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create coach: %w", err)
	}
	return nil
}

// Update writes every editable coach field.
func (r *CoachRepository) Update(ctx context.Context, coach *models.Coach) error {
	coach.UpdatedAt = time.Now().UTC()
	const query = `UPDATE coaches SET name = :name, phone = :phone, gender = :gender, license_no = :license_no,
teaching_subject = :teaching_subject, status = :status, hire_date = :hire_date, notes = :notes, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, coach)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update coach: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a coach.
func (r *CoachRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coaches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coach: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountSalaries returns how many salary records reference the coach.
func (r *CoachRepository) CountSalaries(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM coach_salaries WHERE coach_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count coach salaries: %w", err)
	}
	return count, nil
}
