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

type coachRepository interface {
	List(ctx context.Context, filter models.CoachFilter) ([]models.Coach, int, error)
	FindByID(ctx context.Context, id string) (*models.Coach, error)
	Create(ctx context.Context, coach *models.Coach) error
	Update(ctx context.Context, coach *models.Coach) error
	Delete(ctx context.Context, id string) error
	CountSalaries(ctx context.Context, id string) (int, error)
}

// CoachService manages coaches.
type CoachService struct {
	repo      coachRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCoachService constructs the coach service.
func NewCoachService(repo coachRepository, validate *validator.Validate, logger *zap.Logger) *CoachService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoachService{repo: repo, validator: validate, logger: logger}
}

// List returns coaches with pagination.
func (s *CoachService) List(ctx context.Context, filter models.CoachFilter) ([]models.Coach, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list coaches")
	}
	return items, filter.Paginate(total), nil
}

// Get returns a coach.
func (s *CoachService) Get(ctx context.Context, id string) (*models.Coach, error) {
	coach, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, "coach not found", "failed to load coach")
	}
	return coach, nil
}

// Create adds a coach. New coaches are active unless stated otherwise.
func (s *CoachService) Create(ctx context.Context, req dto.CoachRequest) (*models.Coach, error) {
	coach := &models.Coach{}
	if err := s.apply(coach, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, coach); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "coach phone already used")
		}
		return nil, internalError(err, "failed to create coach")
	}
	return coach, nil
}

// Update changes a coach.
func (s *CoachService) Update(ctx context.Context, id string, req dto.CoachRequest) (*models.Coach, error) {
	coach, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(coach, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, coach); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "coach phone already used")
		}
		return nil, translateError(err, "coach not found", "failed to update coach")
	}
	return coach, nil
}

// Delete removes a coach without salary history.
func (s *CoachService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountSalaries(ctx, id)
	if err != nil {
		return internalError(err, "failed to count coach salaries")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "coach has salary records")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateError(err, "coach not found", "failed to delete coach")
	}
	return nil
}

func (s *CoachService) apply(coach *models.Coach, req dto.CoachRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid coach payload")
	}
	hireDate, err := parseOptionalDate(req.HireDate, "hire_date")
	if err != nil {
		return err
	}
	coach.Name = req.Name
	coach.Phone = req.Phone
	coach.Gender = req.Gender
	coach.LicenseNo = req.LicenseNo
	coach.TeachingSubject = req.TeachingSubject
	coach.HireDate = hireDate
	coach.Notes = req.Notes
	switch {
	case req.Status != "":
		coach.Status = models.CoachStatus(req.Status)
	case coach.Status == "":
		coach.Status = models.CoachStatusActive
	}
	return nil
}
