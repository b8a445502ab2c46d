package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, int, error)
	Export(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, error)
	MutateStudent(ctx context.Context, studentID string, mutate repository.StudentMutation) (*models.PaymentResult, error)
	ReverseRecord(ctx context.Context, recordID string, reverse repository.RecordReversal) (*models.PaymentResult, error)
}

// summaryInvalidator drops cached aggregates after a committed mutation.
type summaryInvalidator interface {
	Invalidate(ctx context.Context)
}

// PaymentService runs the financial reconciliation operations.
type PaymentService struct {
	repo      paymentRepository
	validator *validator.Validate
	logger    *zap.Logger
	summary   summaryInvalidator
	metrics   *MetricsService
	now       func() time.Time
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentRepository, validate *validator.Validate, logger *zap.Logger, summary summaryInvalidator, metrics *MetricsService) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, validator: validate, logger: logger, summary: summary, metrics: metrics, now: time.Now}
}

// List returns ledger rows with pagination.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list payment records")
	}
	return records, filter.Paginate(total), nil
}

// Export returns the ledger rows matching filter for file export.
func (s *PaymentService) Export(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRecordDetail, error) {
	records, err := s.repo.Export(ctx, filter)
	if err != nil {
		return nil, internalError(err, "failed to export payment records")
	}
	return records, nil
}

// RecordPayment books money received from a student.
func (s *PaymentService) RecordPayment(ctx context.Context, req dto.RecordPaymentRequest) (*models.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid payment payload")
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	paidOn, err := parseDate(req.PaymentDate, "payment_date")
	if err != nil {
		return nil, err
	}

	result, err := s.repo.MutateStudent(ctx, req.StudentID, func(student *models.Student) (*models.PaymentRecord, error) {
		if err := ApplyPayment(student, req.Amount); err != nil {
			return nil, err
		}
		return &models.PaymentRecord{
			StudentID:     student.ID,
			RecordType:    models.RecordTypePayment,
			Amount:        req.Amount,
			PaymentDate:   paidOn,
			PaymentMethod: req.PaymentMethod,
			Operator:      req.Operator,
			Notes:         req.Notes,
		}, nil
	})
	if err != nil {
		return nil, translateError(err, "student not found", "failed to record payment")
	}
	s.committed(ctx, "payment", result, req.Amount)
	return result, nil
}

// Refund returns money to a student. The student always ends up refunded.
func (s *PaymentService) Refund(ctx context.Context, req dto.RefundRequest) (*models.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid refund payload")
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	result, err := s.repo.MutateStudent(ctx, req.StudentID, func(student *models.Student) (*models.PaymentRecord, error) {
		if err := ApplyRefund(student, req.Amount); err != nil {
			return nil, err
		}
		return &models.PaymentRecord{
			StudentID:     student.ID,
			RecordType:    models.RecordTypeRefund,
			Amount:        req.Amount.Neg(),
			PaymentDate:   today(s.now()),
			PaymentMethod: "refund",
			Operator:      req.Operator,
			Notes:         "退费：" + req.Notes,
		}, nil
	})
	if err != nil {
		return nil, translateError(err, "student not found", "failed to record refund")
	}
	s.committed(ctx, "refund", result, req.Amount)
	return result, nil
}

// Discount waives part of a student's contract.
func (s *PaymentService) Discount(ctx context.Context, req dto.DiscountRequest) (*models.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid discount payload")
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}

	result, err := s.repo.MutateStudent(ctx, req.StudentID, func(student *models.Student) (*models.PaymentRecord, error) {
		if err := ApplyDiscount(student, req.Amount); err != nil {
			return nil, err
		}
		return &models.PaymentRecord{
			StudentID:     student.ID,
			RecordType:    models.RecordTypeDiscount,
			Amount:        req.Amount.Neg(),
			PaymentDate:   today(s.now()),
			PaymentMethod: "discount",
			Operator:      req.Operator,
			Notes:         "减免：" + req.Notes,
		}, nil
	})
	if err != nil {
		return nil, translateError(err, "student not found", "failed to record discount")
	}
	s.committed(ctx, "discount", result, req.Amount)
	return result, nil
}

// DeleteRecord removes a ledger row and reverses its effect on the student.
func (s *PaymentService) DeleteRecord(ctx context.Context, recordID string) (*models.PaymentResult, error) {
	if recordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	result, err := s.repo.ReverseRecord(ctx, recordID, ReverseLedgerEntry)
	if err != nil {
		return nil, translateError(err, "payment record not found", "failed to delete payment record")
	}
	s.committed(ctx, "reversal", result, result.Record.Amount.Abs())
	return result, nil
}

func (s *PaymentService) committed(ctx context.Context, operation string, result *models.PaymentResult, amount decimal.Decimal) {
	s.logger.Info("financial operation committed",
		zap.String("operation", operation),
		zap.String("student_id", result.Student.ID),
		zap.String("amount", amount.StringFixed(2)),
		zap.String("actual_amount", result.Student.ActualAmount.StringFixed(2)),
		zap.String("debt_amount", result.Student.DebtAmount.StringFixed(2)),
		zap.String("payment_status", string(result.Student.PaymentStatus)),
	)
	s.metrics.RecordFinancialOperation(operation)
	if s.summary != nil {
		s.summary.Invalidate(ctx)
	}
}
