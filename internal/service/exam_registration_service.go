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

type examRegistrationRepository interface {
	List(ctx context.Context, filter models.ExamRegistrationFilter) ([]models.ExamRegistrationDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ExamRegistrationDetail, error)
	Create(ctx context.Context, reg *models.ExamRegistration, admit repository.RegistrationAdmission) error
	Delete(ctx context.Context, id string) (*models.ExamRegistration, error)
	RecordResult(ctx context.Context, id string, apply repository.ResultApplier) (*models.ExamResultOutcome, error)
}

// ExamRegistrationService books exams and runs the progress engine on results.
type ExamRegistrationService struct {
	repo      examRegistrationRepository
	validator *validator.Validate
	logger    *zap.Logger
	summary   summaryInvalidator
	metrics   *MetricsService
	now       func() time.Time
}

// NewExamRegistrationService constructs the registration service.
func NewExamRegistrationService(repo examRegistrationRepository, validate *validator.Validate, logger *zap.Logger, summary summaryInvalidator, metrics *MetricsService) *ExamRegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamRegistrationService{repo: repo, validator: validate, logger: logger, summary: summary, metrics: metrics, now: time.Now}
}

// List returns registrations with pagination.
func (s *ExamRegistrationService) List(ctx context.Context, filter models.ExamRegistrationFilter) ([]models.ExamRegistrationDetail, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list exam registrations")
	}
	return items, filter.Paginate(total), nil
}

// Get returns a single registration.
func (s *ExamRegistrationService) Get(ctx context.Context, id string) (*models.ExamRegistrationDetail, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, "exam registration not found", "failed to load exam registration")
	}
	return reg, nil
}

// Create books a student onto a schedule after the admission checks pass.
func (s *ExamRegistrationService) Create(ctx context.Context, req dto.CreateRegistrationRequest) (*models.ExamRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}
	reg := &models.ExamRegistration{StudentID: req.StudentID, ScheduleID: req.ScheduleID, Notes: req.Notes}
	err := s.repo.Create(ctx, reg, CheckAdmission)
	switch {
	case errors.Is(err, repository.ErrScheduleFull):
		return nil, appErrors.Clone(appErrors.ErrConflict, "exam schedule is full")
	case errors.Is(err, repository.ErrDuplicateRegistration):
		return nil, appErrors.Clone(appErrors.ErrConflict, "student is already registered for this exam")
	case err != nil:
		return nil, translateError(err, "student or exam schedule not found", "failed to create exam registration")
	}
	s.logger.Info("exam registration created",
		zap.String("registration_id", reg.ID),
		zap.String("student_id", reg.StudentID),
		zap.String("schedule_id", reg.ScheduleID))
	return reg, nil
}

// Delete cancels a registration and frees its seat.
func (s *ExamRegistrationService) Delete(ctx context.Context, id string) error {
	reg, err := s.repo.Delete(ctx, id)
	if err != nil {
		return translateError(err, "exam registration not found", "failed to delete exam registration")
	}
	s.logger.Info("exam registration deleted", zap.String("registration_id", id), zap.String("schedule_id", reg.ScheduleID))
	return nil
}

// RecordResult enters an exam outcome and applies progress, warnings and
// the disqualification cascade in one transaction.
func (s *ExamRegistrationService) RecordResult(ctx context.Context, id string, req dto.RecordResultRequest) (*models.ExamResultOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid exam result payload")
	}
	result := models.ExamResult(req.ExamResult)
	on := today(s.now())
	var subject models.ExamSubject

	outcome, err := s.repo.RecordResult(ctx, id, func(reg *models.ExamRegistration, schedule *models.ExamSchedule, _ *models.Student, progress *models.ExamProgress) (*repository.ResultEffects, error) {
		if reg.ExamResult != models.ExamResultPending {
			return nil, appErrors.Clone(appErrors.ErrConflict, "exam result already recorded")
		}
		subject = schedule.Subject
		transition, err := ApplyExamResult(progress, schedule.Subject, result, on)
		if err != nil {
			return nil, err
		}
		reg.ExamResult = result
		reg.Score = req.Score
		reg.ResultDate = &on

		effects := &repository.ResultEffects{Warnings: transition.Warnings}
		if transition.Revoked {
			status := models.EnrollmentStatusDisqualified
			effects.EnrollmentStatus = &status
		}
		return effects, nil
	})
	if err != nil {
		return nil, translateError(err, "exam registration not found", "failed to record exam result")
	}

	s.metrics.RecordExamResult(subject.Label(), string(result))
	for _, w := range outcome.Warnings {
		s.metrics.RecordExamWarning(string(w.WarningType))
		s.logger.Warn("exam warning raised",
			zap.String("student_id", w.StudentID),
			zap.Int("subject", int(w.Subject)),
			zap.String("type", string(w.WarningType)),
			zap.Int("failed_count", w.FailedCount))
	}
	s.logger.Info("exam result recorded",
		zap.String("registration_id", id),
		zap.String("student_id", outcome.Registration.StudentID),
		zap.String("result", string(result)),
		zap.Int("total_progress", outcome.Progress.TotalProgress))
	if s.summary != nil {
		s.summary.Invalidate(ctx)
	}
	return outcome, nil
}
