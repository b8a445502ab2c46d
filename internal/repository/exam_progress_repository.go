package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

const progressColumns = `student_id,
subject1_status, subject1_total_count, subject1_failed_count, subject1_pass_date,
subject2_status, subject2_total_count, subject2_failed_count, subject2_pass_date,
subject3_status, subject3_total_count, subject3_failed_count, subject3_pass_date,
subject4_status, subject4_total_count, subject4_failed_count, subject4_pass_date,
total_progress, exam_qualification, disqualified_date, disqualified_reason, created_at, updated_at`

const progressQualifiedColumns = `p.student_id,
p.subject1_status, p.subject1_total_count, p.subject1_failed_count, p.subject1_pass_date,
p.subject2_status, p.subject2_total_count, p.subject2_failed_count, p.subject2_pass_date,
p.subject3_status, p.subject3_total_count, p.subject3_failed_count, p.subject3_pass_date,
p.subject4_status, p.subject4_total_count, p.subject4_failed_count, p.subject4_pass_date,
p.total_progress, p.exam_qualification, p.disqualified_date, p.disqualified_reason, p.created_at, p.updated_at`

var progressSorts = map[string]string{
	"total_progress": "p.total_progress",
	"updated_at":     "p.updated_at",
	"student_name":   "s.name",
}

// progressRow mirrors the flat student_exam_progress table.
type progressRow struct {
	StudentID           string               `db:"student_id"`
	Subject1Status      models.SubjectStatus `db:"subject1_status"`
	Subject1TotalCount  int                  `db:"subject1_total_count"`
	Subject1FailedCount int                  `db:"subject1_failed_count"`
	Subject1PassDate    *time.Time           `db:"subject1_pass_date"`
	Subject2Status      models.SubjectStatus `db:"subject2_status"`
	Subject2TotalCount  int                  `db:"subject2_total_count"`
	Subject2FailedCount int                  `db:"subject2_failed_count"`
	Subject2PassDate    *time.Time           `db:"subject2_pass_date"`
	Subject3Status      models.SubjectStatus `db:"subject3_status"`
	Subject3TotalCount  int                  `db:"subject3_total_count"`
	Subject3FailedCount int                  `db:"subject3_failed_count"`
	Subject3PassDate    *time.Time           `db:"subject3_pass_date"`
	Subject4Status      models.SubjectStatus `db:"subject4_status"`
	Subject4TotalCount  int                  `db:"subject4_total_count"`
	Subject4FailedCount int                  `db:"subject4_failed_count"`
	Subject4PassDate    *time.Time           `db:"subject4_pass_date"`
	TotalProgress       int                  `db:"total_progress"`
	ExamQualification   models.Qualification `db:"exam_qualification"`
	DisqualifiedDate    *time.Time           `db:"disqualified_date"`
	DisqualifiedReason  string               `db:"disqualified_reason"`
	CreatedAt           time.Time            `db:"created_at"`
	UpdatedAt           time.Time            `db:"updated_at"`
}

type progressDetailRow struct {
	progressRow
	StudentName string `db:"student_name"`
}

func (row progressRow) toModel() *models.ExamProgress {
	p := &models.ExamProgress{
		StudentID:          row.StudentID,
		TotalProgress:      row.TotalProgress,
		ExamQualification:  row.ExamQualification,
		DisqualifiedDate:   row.DisqualifiedDate,
		DisqualifiedReason: row.DisqualifiedReason,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	p.Subjects[0] = models.SubjectProgress{Subject: models.SubjectOne, Status: row.Subject1Status, TotalCount: row.Subject1TotalCount, FailedCount: row.Subject1FailedCount, PassDate: row.Subject1PassDate}
	p.Subjects[1] = models.SubjectProgress{Subject: models.SubjectTwo, Status: row.Subject2Status, TotalCount: row.Subject2TotalCount, FailedCount: row.Subject2FailedCount, PassDate: row.Subject2PassDate}
	p.Subjects[2] = models.SubjectProgress{Subject: models.SubjectThree, Status: row.Subject3Status, TotalCount: row.Subject3TotalCount, FailedCount: row.Subject3FailedCount, PassDate: row.Subject3PassDate}
	p.Subjects[3] = models.SubjectProgress{Subject: models.SubjectFour, Status: row.Subject4Status, TotalCount: row.Subject4TotalCount, FailedCount: row.Subject4FailedCount, PassDate: row.Subject4PassDate}
	return p
}

func progressArgs(p *models.ExamProgress) []interface{} {
	args := []interface{}{p.StudentID}
	for _, s := range p.Subjects {
		args = append(args, s.Status, s.TotalCount, s.FailedCount, s.PassDate)
	}
	return append(args, p.TotalProgress, p.ExamQualification, p.DisqualifiedDate, p.DisqualifiedReason, p.UpdatedAt)
}

// ExamProgressRepository persists per-student exam progress.
type ExamProgressRepository struct {
	db *sqlx.DB
}

// NewExamProgressRepository constructs the repository.
func NewExamProgressRepository(db *sqlx.DB) *ExamProgressRepository {
	return &ExamProgressRepository{db: db}
}

// Ensure returns the progress row of a student, creating the initial row on first access.
func (r *ExamProgressRepository) Ensure(ctx context.Context, studentID string) (*models.ExamProgress, error) {
	if _, err := r.db.ExecContext(ctx, `INSERT INTO student_exam_progress (student_id) VALUES ($1) ON CONFLICT (student_id) DO NOTHING`, studentID); err != nil {
		return nil, fmt.Errorf("create exam progress: %w", err)
	}
	var row progressRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+progressColumns+` FROM student_exam_progress WHERE student_id = $1`, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load exam progress: %w", err)
	}
	return row.toModel(), nil
}

// List returns existing progress rows with student names.
func (r *ExamProgressRepository) List(ctx context.Context, filter models.ExamProgressFilter) ([]models.ExamProgress, int, error) {
	var where whereBuilder
	if filter.Qualification != "" {
		where.add("p.exam_qualification = $%d", filter.Qualification)
	}
	if filter.Search != "" {
		where.add("LOWER(s.name) LIKE $%d", likePattern(filter.Search))
	}

	base := ` FROM student_exam_progress p JOIN students s ON s.id = p.student_id` + where.clause()
	query := `SELECT ` + progressQualifiedColumns + `, s.name AS student_name` + base +
		` ORDER BY ` + orderBy(filter.ListOptions, progressSorts, "updated_at") + pageClause(filter.ListOptions)
	var rows []progressDetailRow
	if err := r.db.SelectContext(ctx, &rows, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list exam progress: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count exam progress: %w", err)
	}

	items := make([]models.ExamProgress, 0, len(rows))
	for _, row := range rows {
		p := row.toModel()
		p.StudentName = row.StudentName
		items = append(items, *p)
	}
	return items, total, nil
}

// loadProgressTx reads the progress row without creating it; a missing row
// yields the initial progress.
func loadProgressTx(ctx context.Context, tx *sqlx.Tx, studentID string) (*models.ExamProgress, error) {
	var row progressRow
	if err := tx.GetContext(ctx, &row, `SELECT `+progressColumns+` FROM student_exam_progress WHERE student_id = $1`, studentID); err != nil {
		if err == sql.ErrNoRows {
			return models.NewExamProgress(studentID), nil
		}
		return nil, fmt.Errorf("load exam progress: %w", err)
	}
	return row.toModel(), nil
}

// lockProgressTx creates the progress row when missing and locks it.
func lockProgressTx(ctx context.Context, tx *sqlx.Tx, studentID string) (*models.ExamProgress, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO student_exam_progress (student_id) VALUES ($1) ON CONFLICT (student_id) DO NOTHING`, studentID); err != nil {
		return nil, fmt.Errorf("create exam progress: %w", err)
	}
	var row progressRow
	if err := tx.GetContext(ctx, &row, `SELECT `+progressColumns+` FROM student_exam_progress WHERE student_id = $1 FOR UPDATE`, studentID); err != nil {
		return nil, fmt.Errorf("lock exam progress: %w", err)
	}
	return row.toModel(), nil
}

func saveProgressTx(ctx context.Context, tx *sqlx.Tx, p *models.ExamProgress) error {
	p.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_exam_progress SET
subject1_status = $2, subject1_total_count = $3, subject1_failed_count = $4, subject1_pass_date = $5,
subject2_status = $6, subject2_total_count = $7, subject2_failed_count = $8, subject2_pass_date = $9,
subject3_status = $10, subject3_total_count = $11, subject3_failed_count = $12, subject3_pass_date = $13,
subject4_status = $14, subject4_total_count = $15, subject4_failed_count = $16, subject4_pass_date = $17,
total_progress = $18, exam_qualification = $19, disqualified_date = $20, disqualified_reason = $21, updated_at = $22
WHERE student_id = $1`
	if _, err := tx.ExecContext(ctx, query, progressArgs(p)...); err != nil {
		return fmt.Errorf("update exam progress: %w", err)
	}
	return nil
}
