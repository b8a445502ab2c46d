package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

// paymentRepoStub commits a mutation only when the callback succeeds, the way
// the transactional repository does.
type paymentRepoStub struct {
	students map[string]*models.Student
	records  map[string]*models.PaymentRecord
	listErr  error
}

func newPaymentRepoStub(students ...*models.Student) *paymentRepoStub {
	repo := &paymentRepoStub{students: map[string]*models.Student{}, records: map[string]*models.PaymentRecord{}}
	for _, s := range students {
		repo.students[s.ID] = s
	}
	return repo
}

func (r *paymentRepoStub) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, int, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	var out []models.PaymentRecordDetail
	for _, rec := range r.records {
		out = append(out, models.PaymentRecordDetail{PaymentRecord: *rec})
	}
	return out, len(out), nil
}

func (r *paymentRepoStub) Export(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, error) {
	out, _, err := r.List(ctx, filter)
	return out, err
}

func (r *paymentRepoStub) MutateStudent(ctx context.Context, studentID string, mutate repository.StudentMutation) (*models.PaymentResult, error) {
	stored, ok := r.students[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	working := *stored
	record, err := mutate(&working)
	if err != nil {
		return nil, err
	}
	record.ID = uuid.NewString()
	r.records[record.ID] = record
	*stored = working
	return &models.PaymentResult{Student: working, Record: record}, nil
}

func (r *paymentRepoStub) ReverseRecord(ctx context.Context, recordID string, reverse repository.RecordReversal) (*models.PaymentResult, error) {
	record, ok := r.records[recordID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	stored := r.students[record.StudentID]
	working := *stored
	if err := reverse(&working, record); err != nil {
		return nil, err
	}
	delete(r.records, recordID)
	*stored = working
	return &models.PaymentResult{Student: working, Record: record}, nil
}

type invalidatorStub struct {
	calls int
}

func (i *invalidatorStub) Invalidate(context.Context) {
	i.calls++
}

func newPaymentServiceForTest(students ...*models.Student) (*PaymentService, *paymentRepoStub, *invalidatorStub) {
	repo := newPaymentRepoStub(students...)
	inv := &invalidatorStub{}
	return NewPaymentService(repo, nil, nil, inv, NewMetricsService()), repo, inv
}

func TestPaymentServiceRecordThenDeleteRestoresStudent(t *testing.T) {
	student := newStudent("2000")
	svc, repo, inv := newPaymentServiceForTest(student)
	before := *student

	result, err := svc.RecordPayment(context.Background(), dto.RecordPaymentRequest{
		StudentID: "stu-1", Amount: dec("800"), PaymentDate: "2025-03-02", PaymentMethod: "cash", Operator: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartial, result.Student.PaymentStatus)
	assert.Equal(t, models.RecordTypePayment, result.Record.RecordType)
	assert.True(t, result.Record.Amount.Equal(dec("800")))
	assert.Len(t, repo.records, 1)

	reversed, err := svc.DeleteRecord(context.Background(), result.Record.ID)
	require.NoError(t, err)
	assert.True(t, reversed.Student.ActualAmount.Equal(before.ActualAmount))
	assert.True(t, reversed.Student.DebtAmount.Equal(before.DebtAmount))
	assert.Equal(t, before.PaymentStatus, reversed.Student.PaymentStatus)
	assert.Empty(t, repo.records)
	assert.Equal(t, 2, inv.calls)
}

func TestPaymentServiceDiscountOverContractLeavesNoTrace(t *testing.T) {
	student := newStudent("1800")
	student.DiscountAmount = dec("1500")
	recomputeDebt(student)
	svc, repo, inv := newPaymentServiceForTest(student)

	_, err := svc.Discount(context.Background(), dto.DiscountRequest{StudentID: "stu-1", Amount: dec("300.01")})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.records)
	assert.True(t, repo.students["stu-1"].DiscountAmount.Equal(dec("1500")))
	assert.Zero(t, inv.calls)
}

func TestPaymentServiceDiscountReachesPaid(t *testing.T) {
	student := newStudent("1800")
	student.ActualAmount = dec("1600")
	student.PaymentStatus = models.PaymentStatusPartial
	student.EnrollmentStatus = models.EnrollmentStatusPartial
	recomputeDebt(student)
	svc, _, _ := newPaymentServiceForTest(student)

	result, err := svc.Discount(context.Background(), dto.DiscountRequest{StudentID: "stu-1", Amount: dec("200"), Notes: "loyalty"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, result.Student.PaymentStatus)
	assert.True(t, result.Student.DebtAmount.IsZero())
	assert.True(t, result.Record.Amount.Equal(dec("-200")))
	assert.Equal(t, "减免：loyalty", result.Record.Notes)
}

func TestPaymentServiceRefund(t *testing.T) {
	student := newStudent("1800")
	student.ActualAmount = dec("1800")
	student.PaymentStatus = models.PaymentStatusPaid
	recomputeDebt(student)
	svc, repo, _ := newPaymentServiceForTest(student)

	_, err := svc.Refund(context.Background(), dto.RefundRequest{StudentID: "stu-1", Amount: dec("1800.50")})
	require.Error(t, err)
	assert.Empty(t, repo.records)

	result, err := svc.Refund(context.Background(), dto.RefundRequest{StudentID: "stu-1", Amount: dec("200"), Notes: "moved away"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, result.Student.PaymentStatus)
	assert.True(t, result.Record.Amount.Equal(dec("-200")))
	assert.Equal(t, models.RecordTypeRefund, result.Record.RecordType)
	assert.Equal(t, "退费：moved away", result.Record.Notes)
}

func TestPaymentServiceValidation(t *testing.T) {
	svc, _, _ := newPaymentServiceForTest(newStudent("2000"))

	_, err := svc.RecordPayment(context.Background(), dto.RecordPaymentRequest{StudentID: "stu-1", Amount: dec("10"), PaymentMethod: "cash"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.RecordPayment(context.Background(), dto.RecordPaymentRequest{StudentID: "stu-1", Amount: dec("0"), PaymentDate: "2025-03-01", PaymentMethod: "cash"})
	require.Error(t, err)
}

func TestPaymentServiceNotFound(t *testing.T) {
	svc, _, _ := newPaymentServiceForTest()

	_, err := svc.RecordPayment(context.Background(), dto.RecordPaymentRequest{StudentID: "ghost", Amount: dec("10"), PaymentDate: "2025-03-01", PaymentMethod: "cash"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.DeleteRecord(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceListWrapsInternal(t *testing.T) {
	svc, repo, _ := newPaymentServiceForTest()
	repo.listErr = errors.New("db down")

	_, _, err := svc.List(context.Background(), models.PaymentFilter{})
	require.Error(t, err)
	assert.True(t, appErrors.IsInternal(err))
}

func TestPaymentServiceDebtInvariantAcrossSequence(t *testing.T) {
	student := newStudent("3000")
	svc, repo, _ := newPaymentServiceForTest(student)
	ctx := context.Background()

	steps := []func() error{
		func() error {
			_, err := svc.RecordPayment(ctx, dto.RecordPaymentRequest{StudentID: "stu-1", Amount: dec("1200.50"), PaymentDate: "2025-01-10", PaymentMethod: "card"})
			return err
		},
		func() error {
			_, err := svc.Discount(ctx, dto.DiscountRequest{StudentID: "stu-1", Amount: dec("299.50")})
			return err
		},
		func() error {
			_, err := svc.RecordPayment(ctx, dto.RecordPaymentRequest{StudentID: "stu-1", Amount: dec("1500"), PaymentDate: "2025-02-10", PaymentMethod: "cash"})
			return err
		},
		func() error {
			_, err := svc.Refund(ctx, dto.RefundRequest{StudentID: "stu-1", Amount: dec("700")})
			return err
		},
	}
	for _, step := range steps {
		require.NoError(t, step())
		assertDebtInvariant(t, repo.students["stu-1"])
	}
	assert.Equal(t, models.PaymentStatusRefunded, repo.students["stu-1"].PaymentStatus)
}
