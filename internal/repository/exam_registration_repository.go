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

const registrationColumns = `id, student_id, schedule_id, exam_result, score, result_date, notes, created_at, updated_at`

const registrationDetailColumns = `r.id, r.student_id, r.schedule_id, r.exam_result, r.score, r.result_date, r.notes, r.created_at, r.updated_at,
s.name AS student_name, es.subject, es.exam_date, es.location`

const registrationJoins = ` FROM exam_registrations r
JOIN students s ON s.id = r.student_id
JOIN exam_schedules es ON es.id = r.schedule_id`

var registrationSorts = map[string]string{
	"exam_date":  "es.exam_date",
	"created_at": "r.created_at",
}

// RegistrationAdmission decides whether a student may book a schedule. It
// sees the locked student, the schedule and the current progress.
type RegistrationAdmission func(student *models.Student, schedule *models.ExamSchedule, progress *models.ExamProgress) error

// ResultApplier mutates the registration and progress for an entered result
// and returns the side effects to persist with them.
type ResultApplier func(reg *models.ExamRegistration, schedule *models.ExamSchedule, student *models.Student, progress *models.ExamProgress) (*ResultEffects, error)

// ResultEffects are the rows a recorded result produces beyond the progress update.
type ResultEffects struct {
	Warnings         []models.ExamWarningLog
	EnrollmentStatus *models.EnrollmentStatus
}

// ExamRegistrationRepository books students onto schedules and records results.
type ExamRegistrationRepository struct {
	db *sqlx.DB
}

// NewExamRegistrationRepository constructs the repository.
func NewExamRegistrationRepository(db *sqlx.DB) *ExamRegistrationRepository {
	return &ExamRegistrationRepository{db: db}
}

// List returns registrations matching the filter with the total count.
func (r *ExamRegistrationRepository) List(ctx context.Context, filter models.ExamRegistrationFilter) ([]models.ExamRegistrationDetail, int, error) {
	var where whereBuilder
	if filter.StudentID != "" {
		where.add("r.student_id = $%d", filter.StudentID)
	}
	if filter.ScheduleID != "" {
		where.add("r.schedule_id = $%d", filter.ScheduleID)
	}
	if filter.ExamResult != "" {
		where.add("r.exam_result = $%d", filter.ExamResult)
	}

	query := `SELECT ` + registrationDetailColumns + registrationJoins + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, registrationSorts, "created_at") + pageClause(filter.ListOptions)
	var items []models.ExamRegistrationDetail
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list exam registrations: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM exam_registrations r`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count exam registrations: %w", err)
	}
	return items, total, nil
}

// FindByID returns a registration with student and schedule context.
func (r *ExamRegistrationRepository) FindByID(ctx context.Context, id string) (*models.ExamRegistrationDetail, error) {
	var item models.ExamRegistrationDetail
	if err := r.db.GetContext(ctx, &item, `SELECT `+registrationDetailColumns+registrationJoins+` WHERE r.id = $1`, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create runs admit against the locked student, then takes a seat with a
// conditional increment and inserts the registration, all in one transaction.
func (r *ExamRegistrationRepository) Create(ctx context.Context, reg *models.ExamRegistration, admit RegistrationAdmission) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	student, err := lockStudent(ctx, tx, reg.StudentID)
	if err != nil {
		return err
	}
	schedule, err := findScheduleTx(ctx, tx, reg.ScheduleID)
	if err != nil {
		return err
	}
	progress, err := loadProgressTx(ctx, tx, reg.StudentID)
	if err != nil {
		return err
	}

	if err = admit(student, schedule, progress); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE exam_schedules SET arranged_count = arranged_count + 1, updated_at = $2 WHERE id = $1 AND arranged_count < capacity`, reg.ScheduleID, now)
	if err != nil {
		return fmt.Errorf("reserve exam seat: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		err = ErrScheduleFull
		return err
	}

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	reg.ExamResult = models.ExamResultPending
	reg.CreatedAt = now
	reg.UpdatedAt = now
	const insert = `INSERT INTO exam_registrations (id, student_id, schedule_id, exam_result, notes, created_at, updated_at)
VALUES (:id, :student_id, :schedule_id, :exam_result, :notes, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, reg); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateRegistration
			return err
		}
		return fmt.Errorf("insert exam registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit registration transaction: %w", err)
	}
	return nil
}

// Delete removes a registration and releases its seat.
func (r *ExamRegistrationRepository) Delete(ctx context.Context, id string) (reg *models.ExamRegistration, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration delete: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	reg, err = lockRegistrationTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM exam_registrations WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete exam registration: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE exam_schedules SET arranged_count = GREATEST(arranged_count - 1, 0), updated_at = $2 WHERE id = $1`, reg.ScheduleID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("release exam seat: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration delete: %w", err)
	}
	return reg, nil
}

// RecordResult locks the registration, student and progress rows, lets apply
// compute the new state, then persists registration, progress, warnings and
// the optional enrollment cascade together.
func (r *ExamRegistrationRepository) RecordResult(ctx context.Context, id string, apply ResultApplier) (outcome *models.ExamResultOutcome, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin result transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	reg, err := lockRegistrationTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	schedule, err := findScheduleTx(ctx, tx, reg.ScheduleID)
	if err != nil {
		return nil, err
	}
	student, err := lockStudent(ctx, tx, reg.StudentID)
	if err != nil {
		return nil, err
	}
	progress, err := lockProgressTx(ctx, tx, reg.StudentID)
	if err != nil {
		return nil, err
	}

	effects, err := apply(reg, schedule, student, progress)
	if err != nil {
		return nil, err
	}
	if effects == nil {
		effects = &ResultEffects{}
	}

	reg.UpdatedAt = time.Now().UTC()
	const updateReg = `UPDATE exam_registrations SET exam_result = $2, score = $3, result_date = $4, updated_at = $5 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateReg, reg.ID, reg.ExamResult, reg.Score, reg.ResultDate, reg.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update exam registration: %w", err)
	}
	if err = saveProgressTx(ctx, tx, progress); err != nil {
		return nil, err
	}
	for i := range effects.Warnings {
		if err = insertWarningTx(ctx, tx, &effects.Warnings[i]); err != nil {
			return nil, err
		}
	}
	if effects.EnrollmentStatus != nil {
		if err = saveEnrollmentStatus(ctx, tx, student.ID, *effects.EnrollmentStatus); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit result transaction: %w", err)
	}
	warnings := effects.Warnings
	if warnings == nil {
		warnings = []models.ExamWarningLog{}
	}
	return &models.ExamResultOutcome{
		Registration:     *reg,
		Progress:         *progress,
		Warnings:         warnings,
		EnrollmentStatus: effects.EnrollmentStatus,
	}, nil
}

func lockRegistrationTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.ExamRegistration, error) {
	var reg models.ExamRegistration
	if err := tx.GetContext(ctx, &reg, `SELECT `+registrationColumns+` FROM exam_registrations WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock exam registration: %w", err)
	}
	return &reg, nil
}
