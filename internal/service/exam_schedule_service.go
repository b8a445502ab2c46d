package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type examScheduleRepository interface {
	List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamSchedule, int, error)
	FindByID(ctx context.Context, id string) (*models.ExamSchedule, error)
	Create(ctx context.Context, schedule *models.ExamSchedule) error
	Update(ctx context.Context, schedule *models.ExamSchedule) error
	Delete(ctx context.Context, id string) error
	CountRegistrations(ctx context.Context, id string) (int, error)
}

// ExamScheduleService manages exam sessions.
type ExamScheduleService struct {
	repo      examScheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamScheduleService constructs the schedule service.
func NewExamScheduleService(repo examScheduleRepository, validate *validator.Validate, logger *zap.Logger) *ExamScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamScheduleService{repo: repo, validator: validate, logger: logger}
}

// List returns schedules with pagination.
func (s *ExamScheduleService) List(ctx context.Context, filter models.ExamScheduleFilter) ([]models.ExamSchedule, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list exam schedules")
	}
	return items, filter.Paginate(total), nil
}

// Get returns one schedule.
func (s *ExamScheduleService) Get(ctx context.Context, id string) (*models.ExamSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, "exam schedule not found", "failed to load exam schedule")
	}
	return schedule, nil
}

// Create adds a schedule with no seats taken.
func (s *ExamScheduleService) Create(ctx context.Context, req dto.ExamScheduleRequest) (*models.ExamSchedule, error) {
	schedule, err := s.build(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, internalError(err, "failed to create exam schedule")
	}
	return schedule, nil
}

// Update changes a schedule. Capacity may not drop below the seats taken.
func (s *ExamScheduleService) Update(ctx context.Context, id string, req dto.ExamScheduleRequest) (*models.ExamSchedule, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	schedule, err := s.build(req)
	if err != nil {
		return nil, err
	}
	schedule.ID = existing.ID
	schedule.ArrangedCount = existing.ArrangedCount
	schedule.CreatedAt = existing.CreatedAt
	if schedule.Capacity < existing.ArrangedCount {
		return nil, appErrors.Clone(appErrors.ErrConflict, "capacity cannot be lower than arranged count")
	}
	if existing.ArrangedCount > 0 && schedule.Subject != existing.Subject {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject cannot change once students are registered")
	}
	if err := s.repo.Update(ctx, schedule); err != nil {
		if errors.Is(err, repository.ErrCapacityBelowArranged) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "capacity cannot be lower than arranged count")
		}
		return nil, translateError(err, "exam schedule not found", "failed to update exam schedule")
	}
	return schedule, nil
}

// Delete removes a schedule that has no registrations.
func (s *ExamScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountRegistrations(ctx, id)
	if err != nil {
		return internalError(err, "failed to count registrations")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "exam schedule has registrations")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateError(err, "exam schedule not found", "failed to delete exam schedule")
	}
	return nil
}

func (s *ExamScheduleService) build(req dto.ExamScheduleRequest) (*models.ExamSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid exam schedule payload")
	}
	examDate, err := parseDate(req.ExamDate, "exam_date")
	if err != nil {
		return nil, err
	}
	return &models.ExamSchedule{
		Subject:  models.ExamSubject(req.Subject),
		ExamDate: examDate,
		Location: req.Location,
		Capacity: req.Capacity,
		Notes:    req.Notes,
	}, nil
}
