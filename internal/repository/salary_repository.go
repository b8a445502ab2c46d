package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

const salaryConfigColumns = `id, config_type, amount, effective_date, expiry_date, notes, created_at, updated_at`

const salaryColumns = `id, coach_id, month, attendance_days, base_daily_rate, base_salary,
subject2_pass_count, subject2_rate, subject2_commission, subject3_pass_count, subject3_rate, subject3_commission,
recruitment_count, recruitment_rate, recruitment_commission, bonus, deduction, gross_salary, status, paid_at, notes, created_at, updated_at`

const salaryDetailColumns = `cs.id, cs.coach_id, cs.month, cs.attendance_days, cs.base_daily_rate, cs.base_salary,
cs.subject2_pass_count, cs.subject2_rate, cs.subject2_commission, cs.subject3_pass_count, cs.subject3_rate, cs.subject3_commission,
cs.recruitment_count, cs.recruitment_rate, cs.recruitment_commission, cs.bonus, cs.deduction, cs.gross_salary, cs.status, cs.paid_at, cs.notes,
cs.created_at, cs.updated_at, c.name AS coach_name`

var salaryConfigSorts = map[string]string{
	"effective_date": "effective_date",
	"created_at":     "created_at",
}

var salarySorts = map[string]string{
	"month":        "cs.month",
	"gross_salary": "cs.gross_salary",
	"coach_name":   "c.name",
	"created_at":   "cs.created_at",
}

// SalaryRepository persists payroll configs and monthly coach salaries.
type SalaryRepository struct {
	db *sqlx.DB
}

// NewSalaryRepository constructs the repository.
func NewSalaryRepository(db *sqlx.DB) *SalaryRepository {
	return &SalaryRepository{db: db}
}

// ListConfigs returns payroll configs matching the filter with the total count.
func (r *SalaryRepository) ListConfigs(ctx context.Context, filter models.SalaryConfigFilter) ([]models.SalaryConfig, int, error) {
	var where whereBuilder
	if filter.ConfigType != "" {
		where.add("config_type = $%d", filter.ConfigType)
	}
	query := `SELECT ` + salaryConfigColumns + ` FROM salary_configs` + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, salaryConfigSorts, "effective_date") + pageClause(filter.ListOptions)
	var configs []models.SalaryConfig
	if err := r.db.SelectContext(ctx, &configs, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list salary configs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM salary_configs`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count salary configs: %w", err)
	}
	return configs, total, nil
}

// FindConfig returns a payroll config by ID.
func (r *SalaryRepository) FindConfig(ctx context.Context, id string) (*models.SalaryConfig, error) {
	var cfg models.SalaryConfig
	if err := r.db.GetContext(ctx, &cfg, `SELECT `+salaryConfigColumns+` FROM salary_configs WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateConfig inserts a payroll config.
func (r *SalaryRepository) CreateConfig(ctx context.Context, cfg *models.SalaryConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	const query = `INSERT INTO salary_configs (id, config_type, amount, effective_date, expiry_date, notes, created_at, updated_at)
VALUES (:id, :config_type, :amount, :effective_date, :expiry_date, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("create salary config: %w", err)
	}
	return nil
}

// UpdateConfig writes a payroll config.
func (r *SalaryRepository) UpdateConfig(ctx context.Context, cfg *models.SalaryConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	const query = `UPDATE salary_configs SET config_type = :config_type, amount = :amount, effective_date = :effective_date,
expiry_date = :expiry_date, notes = :notes, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, cfg)
	if err != nil {
		return fmt.Errorf("update salary config: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteConfig removes a payroll config.
func (r *SalaryRepository) DeleteConfig(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM salary_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete salary config: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ResolveRate returns the amount of the newest config of the given type in
// force on target. A type without any matching row resolves to zero.
func (r *SalaryRepository) ResolveRate(ctx context.Context, configType models.SalaryConfigType, target time.Time) (decimal.Decimal, error) {
	const query = `SELECT amount FROM salary_configs
WHERE config_type = $1 AND effective_date <= $2 AND (expiry_date IS NULL OR expiry_date >= $2)
ORDER BY effective_date DESC, created_at DESC LIMIT 1`
	var amount decimal.Decimal
	if err := r.db.GetContext(ctx, &amount, query, configType, target); err != nil {
		if err == sql.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("resolve %s rate: %w", configType, err)
	}
	return amount, nil
}

// CoachActivity counts, per coach, the subject 2 and 3 passes of their
// students with a result date in [from, to] and the students they enrolled in
// that window.
func (r *SalaryRepository) CoachActivity(ctx context.Context, from, to time.Time) ([]models.CoachActivity, error) {
	const query = `SELECT c.id AS coach_id, c.status AS coach_status,
COALESCE(p.subject2_passes, 0) AS subject2_passes,
COALESCE(p.subject3_passes, 0) AS subject3_passes,
COALESCE(e.recruits, 0) AS recruits
FROM coaches c
LEFT JOIN (
    SELECT s.coach_id,
        COUNT(*) FILTER (WHERE es.subject = 2) AS subject2_passes,
        COUNT(*) FILTER (WHERE es.subject = 3) AS subject3_passes
    FROM exam_registrations er
    JOIN exam_schedules es ON es.id = er.schedule_id
    JOIN students s ON s.id = er.student_id
    WHERE er.exam_result = $3 AND er.result_date >= $1 AND er.result_date <= $2 AND s.coach_id IS NOT NULL
    GROUP BY s.coach_id
) p ON p.coach_id = c.id
LEFT JOIN (
    SELECT coach_id, COUNT(*) AS recruits
    FROM students
    WHERE enrollment_date >= $1 AND enrollment_date <= $2 AND coach_id IS NOT NULL
    GROUP BY coach_id
) e ON e.coach_id = c.id
ORDER BY c.name`
	var activity []models.CoachActivity
	if err := r.db.SelectContext(ctx, &activity, query, from, to, models.ExamResultPass); err != nil {
		return nil, fmt.Errorf("load coach activity: %w", err)
	}
	return activity, nil
}

// List returns salary records matching the filter with the total count.
func (r *SalaryRepository) List(ctx context.Context, filter models.CoachSalaryFilter) ([]models.CoachSalaryDetail, int, error) {
	where := salaryWhere(filter)
	query := `SELECT ` + salaryDetailColumns + ` FROM coach_salaries cs JOIN coaches c ON c.id = cs.coach_id` + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, salarySorts, "created_at") + pageClause(filter.ListOptions)
	var items []models.CoachSalaryDetail
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list coach salaries: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM coach_salaries cs`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count coach salaries: %w", err)
	}
	return items, total, nil
}

// ListByMonth returns every salary record of a month ordered by coach name.
func (r *SalaryRepository) ListByMonth(ctx context.Context, month string) ([]models.CoachSalaryDetail, error) {
	query := `SELECT ` + salaryDetailColumns + ` FROM coach_salaries cs JOIN coaches c ON c.id = cs.coach_id WHERE cs.month = $1 ORDER BY c.name`
	var items []models.CoachSalaryDetail
	if err := r.db.SelectContext(ctx, &items, query, month); err != nil {
		return nil, fmt.Errorf("list month salaries: %w", err)
	}
	return items, nil
}

func salaryWhere(filter models.CoachSalaryFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.Month != "" {
		where.add("cs.month = $%d", filter.Month)
	}
	if filter.CoachID != "" {
		where.add("cs.coach_id = $%d", filter.CoachID)
	}
	if filter.Status != "" {
		where.add("cs.status = $%d", filter.Status)
	}
	return where
}

// FindByID returns a salary record by ID.
func (r *SalaryRepository) FindByID(ctx context.Context, id string) (*models.CoachSalaryDetail, error) {
	var item models.CoachSalaryDetail
	query := `SELECT ` + salaryDetailColumns + ` FROM coach_salaries cs JOIN coaches c ON c.id = cs.coach_id WHERE cs.id = $1`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// InsertIfAbsent inserts the record unless the coach already has one for the
// month. It reports whether a row was written.
func (r *SalaryRepository) InsertIfAbsent(ctx context.Context, salary *models.CoachSalary) (bool, error) {
	if salary.ID == "" {
		salary.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	salary.CreatedAt = now
	salary.UpdatedAt = now
	if salary.Status == "" {
		salary.Status = models.SalaryStatusPending
	}
	query := `INSERT INTO coach_salaries (` + salaryColumns + `)
VALUES (:id, :coach_id, :month, :attendance_days, :base_daily_rate, :base_salary,
:subject2_pass_count, :subject2_rate, :subject2_commission, :subject3_pass_count, :subject3_rate, :subject3_commission,
:recruitment_count, :recruitment_rate, :recruitment_commission, :bonus, :deduction, :gross_salary, :status, :paid_at, :notes, :created_at, :updated_at)
ON CONFLICT (coach_id, month) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, salary)
	if err != nil {
		return false, fmt.Errorf("insert coach salary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert coach salary: %w", err)
	}
	return affected > 0, nil
}

// Update writes every computed and manual field of a pending record. Paid
// records are not matched and yield ErrRecordLocked.
func (r *SalaryRepository) Update(ctx context.Context, salary *models.CoachSalary) error {
	salary.UpdatedAt = time.Now().UTC()
	const query = `UPDATE coach_salaries SET attendance_days = :attendance_days, base_daily_rate = :base_daily_rate, base_salary = :base_salary,
subject2_pass_count = :subject2_pass_count, subject2_rate = :subject2_rate, subject2_commission = :subject2_commission,
subject3_pass_count = :subject3_pass_count, subject3_rate = :subject3_rate, subject3_commission = :subject3_commission,
recruitment_count = :recruitment_count, recruitment_rate = :recruitment_rate, recruitment_commission = :recruitment_commission,
bonus = :bonus, deduction = :deduction, gross_salary = :gross_salary, notes = :notes, updated_at = :updated_at
WHERE id = :id AND status = 'pending'`
	res, err := r.db.NamedExecContext(ctx, query, salary)
	if err != nil {
		return fmt.Errorf("update coach salary: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRecordLocked
	}
	return nil
}

// MarkPaid moves a pending record to paid.
func (r *SalaryRepository) MarkPaid(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE coach_salaries SET status = $2, paid_at = $3, updated_at = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.SalaryStatusPaid, at, models.SalaryStatusPending)
	if err != nil {
		return fmt.Errorf("mark salary paid: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRecordLocked
	}
	return nil
}

// Delete removes a pending record.
func (r *SalaryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM coach_salaries WHERE id = $1 AND status = $2`, id, models.SalaryStatusPending)
	if err != nil {
		return fmt.Errorf("delete coach salary: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRecordLocked
	}
	return nil
}
