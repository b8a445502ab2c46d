package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type classTypeRepository interface {
	List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassType, error)
	Create(ctx context.Context, item *models.ClassType) error
	Update(ctx context.Context, item *models.ClassType) error
	Delete(ctx context.Context, id string) error
	CountStudents(ctx context.Context, id string) (int, error)
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal, operator string) (*models.ClassTypePriceLog, error)
	ListPriceLogs(ctx context.Context, id string) ([]models.ClassTypePriceLog, error)
}

// ClassTypeService manages course packages and their price history.
type ClassTypeService struct {
	repo      classTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassTypeService constructs the class type service.
func NewClassTypeService(repo classTypeRepository, validate *validator.Validate, logger *zap.Logger) *ClassTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassTypeService{repo: repo, validator: validate, logger: logger}
}

// List returns class types with pagination.
func (s *ClassTypeService) List(ctx context.Context, filter models.ClassTypeFilter) ([]models.ClassType, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list class types")
	}
	return items, filter.Paginate(total), nil
}

// Get returns a class type.
func (s *ClassTypeService) Get(ctx context.Context, id string) (*models.ClassType, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, "class type not found", "failed to load class type")
	}
	return item, nil
}

// Create adds a class type.
func (s *ClassTypeService) Create(ctx context.Context, req dto.CreateClassTypeRequest) (*models.ClassType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class type payload")
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	item := &models.ClassType{Name: req.Name, Price: req.Price, Description: req.Description, Active: true}
	if req.Active != nil {
		item.Active = *req.Active
	}
	if err := s.repo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class type name already used")
		}
		return nil, internalError(err, "failed to create class type")
	}
	return item, nil
}

// Update changes the descriptive fields of a class type.
func (s *ClassTypeService) Update(ctx context.Context, id string, req dto.UpdateClassTypeRequest) (*models.ClassType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid class type payload")
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Name = req.Name
	item.Description = req.Description
	item.Active = req.Active
	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "class type name already used")
		}
		return nil, translateError(err, "class type not found", "failed to update class type")
	}
	return item, nil
}

// UpdatePrice changes the list price. Enrolled students keep their contract.
func (s *ClassTypeService) UpdatePrice(ctx context.Context, id string, req dto.UpdatePriceRequest) (*models.ClassTypePriceLog, error) {
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	entry, err := s.repo.UpdatePrice(ctx, id, req.Price, req.Operator)
	if err != nil {
		return nil, translateError(err, "class type not found", "failed to update class type price")
	}
	s.logger.Info("class type price changed",
		zap.String("class_type_id", id),
		zap.String("old_price", entry.OldPrice.StringFixed(2)),
		zap.String("new_price", entry.NewPrice.StringFixed(2)),
		zap.String("operator", req.Operator))
	return entry, nil
}

// PriceHistory lists price changes, newest first.
func (s *ClassTypeService) PriceHistory(ctx context.Context, id string) ([]models.ClassTypePriceLog, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	logs, err := s.repo.ListPriceLogs(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to list price history")
	}
	return logs, nil
}

// Delete removes a class type no student references.
func (s *ClassTypeService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return internalError(err, "failed to count class type students")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class type is used by students")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateError(err, "class type not found", "failed to delete class type")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "price cannot be negative")
	}
	if !price.Equal(price.Round(2)) {
		return appErrors.Clone(appErrors.ErrValidation, "price supports at most two decimal places")
	}
	return nil
}
