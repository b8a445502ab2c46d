package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type examProgressRepository interface {
	Ensure(ctx context.Context, studentID string) (*models.ExamProgress, error)
	List(ctx context.Context, filter models.ExamProgressFilter) ([]models.ExamProgress, int, error)
}

type examWarningRepository interface {
	List(ctx context.Context, filter models.ExamWarningFilter) ([]models.ExamWarningDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ExamWarningLog, error)
	MarkHandled(ctx context.Context, id, handledBy, notes string, at time.Time) error
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// ExamProgressService exposes progress rows and the warning inbox.
type ExamProgressService struct {
	progress  examProgressRepository
	warnings  examWarningRepository
	students  studentLookup
	validator *validator.Validate
	logger    *zap.Logger
	summary   summaryInvalidator
	now       func() time.Time
}

// NewExamProgressService constructs the progress service.
func NewExamProgressService(progress examProgressRepository, warnings examWarningRepository, students studentLookup, validate *validator.Validate, logger *zap.Logger, summary summaryInvalidator) *ExamProgressService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamProgressService{
		progress:  progress,
		warnings:  warnings,
		students:  students,
		validator: validate,
		logger:    logger,
		summary:   summary,
		now:       time.Now,
	}
}

// Get returns a student's progress, creating the row on first access.
func (s *ExamProgressService) Get(ctx context.Context, studentID string) (*models.ExamProgress, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, translateError(err, "student not found", "failed to load student")
	}
	progress, err := s.progress.Ensure(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load exam progress")
	}
	progress.StudentName = student.Name
	return progress, nil
}

// List returns progress rows with pagination.
func (s *ExamProgressService) List(ctx context.Context, filter models.ExamProgressFilter) ([]models.ExamProgress, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	items, total, err := s.progress.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list exam progress")
	}
	return items, filter.Paginate(total), nil
}

// ListWarnings returns warning logs with pagination.
func (s *ExamProgressService) ListWarnings(ctx context.Context, filter models.ExamWarningFilter) ([]models.ExamWarningDetail, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	items, total, err := s.warnings.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list exam warnings")
	}
	return items, filter.Paginate(total), nil
}

// HandleWarning marks a warning handled. It is the only change a warning accepts.
func (s *ExamProgressService) HandleWarning(ctx context.Context, id string, req dto.HandleWarningRequest) (*models.ExamWarningLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid warning payload")
	}
	warning, err := s.warnings.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, "exam warning not found", "failed to load exam warning")
	}
	if warning.IsHandled {
		return nil, appErrors.Clone(appErrors.ErrImmutable, "exam warning already handled")
	}

	at := s.now().UTC()
	if err := s.warnings.MarkHandled(ctx, id, req.HandledBy, req.HandleNotes, at); err != nil {
		if errors.Is(err, repository.ErrRecordLocked) {
			return nil, appErrors.Clone(appErrors.ErrImmutable, "exam warning already handled")
		}
		return nil, internalError(err, "failed to handle exam warning")
	}
	warning.IsHandled = true
	warning.HandledBy = &req.HandledBy
	warning.HandledAt = &at
	warning.HandleNotes = &req.HandleNotes

	s.logger.Info("exam warning handled", zap.String("warning_id", id), zap.String("handled_by", req.HandledBy))
	if s.summary != nil {
		s.summary.Invalidate(ctx)
	}
	return warning, nil
}
