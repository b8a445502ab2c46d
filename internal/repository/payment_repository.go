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

const paymentColumns = `id, student_id, record_type, amount, payment_date, payment_method, operator, notes, created_at`

const paymentDetailColumns = `p.id, p.student_id, p.record_type, p.amount, p.payment_date, p.payment_method, p.operator, p.notes, p.created_at,
s.name AS student_name`

var paymentSorts = map[string]string{
	"payment_date": "p.payment_date",
	"amount":       "p.amount",
	"created_at":   "p.created_at",
}

const paymentExportLimit = 10000

// StudentMutation applies a financial change to a locked student and returns
// the ledger row to insert alongside it.
type StudentMutation func(student *models.Student) (*models.PaymentRecord, error)

// RecordReversal undoes the effect of a ledger row on its locked student.
type RecordReversal func(student *models.Student, record *models.PaymentRecord) error

// PaymentRepository owns the payment ledger and the financial columns of students.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns ledger rows matching the filter with the total count.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, int, error) {
	where := paymentWhere(filter)
	query := `SELECT ` + paymentDetailColumns + ` FROM payment_records p JOIN students s ON s.id = p.student_id` + where.clause() +
		` ORDER BY ` + orderBy(filter.ListOptions, paymentSorts, "created_at") + pageClause(filter.ListOptions)
	var records []models.PaymentRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list payment records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM payment_records p`+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count payment records: %w", err)
	}
	return records, total, nil
}

// Export returns every ledger row matching the filter, oldest first.
func (r *PaymentRepository) Export(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, error) {
	where := paymentWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM payment_records p JOIN students s ON s.id = p.student_id%s ORDER BY p.payment_date ASC, p.created_at ASC LIMIT %d`,
		paymentDetailColumns, where.clause(), paymentExportLimit)
	var records []models.PaymentRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, where.args...); err != nil {
		return nil, fmt.Errorf("export payment records: %w", err)
	}
	return records, nil
}

func paymentWhere(filter models.PaymentFilter) *whereBuilder {
	where := &whereBuilder{}
	if filter.StudentID != "" {
		where.add("p.student_id = $%d", filter.StudentID)
	}
	if filter.RecordType != "" {
		where.add("p.record_type = $%d", filter.RecordType)
	}
	if filter.DateFrom != nil {
		where.add("p.payment_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where.add("p.payment_date <= $%d", *filter.DateTo)
	}
	return where
}

// MutateStudent locks the student row, lets mutate change it, then persists
// the student and the returned ledger row in one transaction. Errors returned
// by mutate abort the transaction unchanged.
func (r *PaymentRepository) MutateStudent(ctx context.Context, studentID string, mutate StudentMutation) (result *models.PaymentResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	student, err := lockStudent(ctx, tx, studentID)
	if err != nil {
		return nil, err
	}

	record, err := mutate(student)
	if err != nil {
		return nil, err
	}

	if err = saveStudentFinancials(ctx, tx, student); err != nil {
		return nil, err
	}
	if err = insertPaymentRecord(ctx, tx, record); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment transaction: %w", err)
	}
	return &models.PaymentResult{Student: *student, Record: record}, nil
}

// ReverseRecord locks a ledger row and its student, lets reverse undo the
// row's effect, then deletes the row and persists the student together.
func (r *PaymentRepository) ReverseRecord(ctx context.Context, recordID string, reverse RecordReversal) (result *models.PaymentResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reversal transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var record models.PaymentRecord
	if err = tx.GetContext(ctx, &record, `SELECT `+paymentColumns+` FROM payment_records WHERE id = $1 FOR UPDATE`, recordID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock payment record: %w", err)
	}

	student, err := lockStudent(ctx, tx, record.StudentID)
	if err != nil {
		return nil, err
	}

	if err = reverse(student, &record); err != nil {
		return nil, err
	}

	if err = saveStudentFinancials(ctx, tx, student); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM payment_records WHERE id = $1`, recordID); err != nil {
		return nil, fmt.Errorf("delete payment record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reversal transaction: %w", err)
	}
	return &models.PaymentResult{Student: *student, Record: &record}, nil
}

func insertPaymentRecord(ctx context.Context, tx *sqlx.Tx, record *models.PaymentRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_records (id, student_id, record_type, amount, payment_date, payment_method, operator, notes, created_at)
VALUES (:id, :student_id, :record_type, :amount, :payment_date, :payment_method, :operator, :notes, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}
	return nil
}
