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

const studentColumns = `id, name, gender, id_card, phone, class_type_id, coach_id, enrollment_date,
contract_amount, actual_amount, discount_amount, debt_amount, payment_status, enrollment_status, notes, created_at, updated_at`

const studentDetailColumns = `s.id, s.name, s.gender, s.id_card, s.phone, s.class_type_id, s.coach_id, s.enrollment_date,
s.contract_amount, s.actual_amount, s.discount_amount, s.debt_amount, s.payment_status, s.enrollment_status, s.notes, s.created_at, s.updated_at,
ct.name AS class_type_name, c.name AS coach_name`

const studentJoins = ` FROM students s
LEFT JOIN class_types ct ON ct.id = s.class_type_id
LEFT JOIN coaches c ON c.id = s.coach_id`

var studentSorts = map[string]string{
	"name":            "s.name",
	"enrollment_date": "s.enrollment_date",
	"debt_amount":     "s.debt_amount",
	"actual_amount":   "s.actual_amount",
	"created_at":      "s.created_at",
}

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter with the total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var where whereBuilder
	if filter.Search != "" {
		where.add("(LOWER(s.name) LIKE $%[1]d OR s.phone LIKE $%[1]d OR s.id_card LIKE $%[1]d)", likePattern(filter.Search))
	}
	if filter.PaymentStatus != "" {
		where.add("s.payment_status = $%d", filter.PaymentStatus)
	}
	if filter.EnrollmentStatus != "" {
		where.add("s.enrollment_status = $%d", filter.EnrollmentStatus)
	}
	if filter.ClassTypeID != "" {
		where.add("s.class_type_id = $%d", filter.ClassTypeID)
	}
	if filter.CoachID != "" {
		where.add("s.coach_id = $%d", filter.CoachID)
	}

	query := `SELECT ` + studentDetailColumns + studentJoins + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, studentSorts, "created_at") + pageClause(filter.ListOptions)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM students s`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID returns a student with related names.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, `SELECT `+studentDetailColumns+studentJoins+` WHERE s.id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByIDCard checks whether another student already uses the ID card number.
func (r *StudentRepository) ExistsByIDCard(ctx context.Context, idCard, excludeID string) (bool, error) {
	query := `SELECT 1 FROM students WHERE id_card = $1`
	args := []interface{}{idCard}
	if excludeID != "" {
		query += ` AND id <> $2`
		args = append(args, excludeID)
	}
	query += ` LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student id card: %w", err)
	}
	return true, nil
}

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, name, gender, id_card, phone, class_type_id, coach_id, enrollment_date,
contract_amount, actual_amount, discount_amount, debt_amount, payment_status, enrollment_status, notes, created_at, updated_at)
VALUES (:id, :name, :gender, :id_card, :phone, :class_type_id, :coach_id, :enrollment_date,
:contract_amount, :actual_amount, :discount_amount, :debt_amount, :payment_status, :enrollment_status, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// EnrollmentTransition is a manual enrollment status move. From is the status
// the caller read; the write only lands if the row still carries it.
type EnrollmentTransition struct {
	From models.EnrollmentStatus
	To   models.EnrollmentStatus
}

// Update writes the general fields of a student. Financial columns are owned
// by the payment repository and never written here. The enrollment status is
// only written when change is set, and only while the student is unpaid and
// still at change.From.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student, change *EnrollmentTransition) error {
	student.UpdatedAt = time.Now().UTC()
	query := `UPDATE students SET name = $1, gender = $2, id_card = $3, phone = $4, coach_id = $5, notes = $6, updated_at = $7`
	where := ` WHERE id = $8`
	args := []interface{}{student.Name, student.Gender, student.IDCard, student.Phone, student.CoachID, student.Notes, student.UpdatedAt, student.ID}
	if change != nil {
		query += `, enrollment_status = $9`
		where += ` AND payment_status = $10 AND enrollment_status = $11`
		args = append(args, string(change.To), string(models.PaymentStatusUnpaid), string(change.From))
	}
	res, err := r.db.ExecContext(ctx, query+where, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update student: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		if change != nil {
			return ErrRecordLocked
		}
		return sql.ErrNoRows
	}
	if change != nil {
		student.EnrollmentStatus = change.To
	}
	return nil
}

// Delete removes a student that has never paid. The status guard is repeated
// in SQL so a concurrent payment cannot slip in between check and delete.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1 AND payment_status = $2`, id, models.PaymentStatusUnpaid)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrRecordLocked
	}
	return nil
}

func lockStudent(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, error) {
	var student models.Student
	if err := tx.GetContext(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock student: %w", err)
	}
	return &student, nil
}

func saveStudentFinancials(ctx context.Context, tx *sqlx.Tx, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET actual_amount = $2, discount_amount = $3, debt_amount = $4, payment_status = $5, enrollment_status = $6, updated_at = $7 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, student.ID, student.ActualAmount, student.DiscountAmount, student.DebtAmount,
		student.PaymentStatus, student.EnrollmentStatus, student.UpdatedAt); err != nil {
		return fmt.Errorf("update student financials: %w", err)
	}
	return nil
}

func saveEnrollmentStatus(ctx context.Context, tx *sqlx.Tx, studentID string, status models.EnrollmentStatus) error {
	const query = `UPDATE students SET enrollment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, studentID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student enrollment status: %w", err)
	}
	return nil
}
