package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByIDCard(ctx context.Context, idCard, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student, change *repository.EnrollmentTransition) error
	Delete(ctx context.Context, id string) error
}

type classTypeLookup interface {
	FindByID(ctx context.Context, id string) (*models.ClassType, error)
}

type coachLookup interface {
	FindByID(ctx context.Context, id string) (*models.Coach, error)
}

// manualEnrollmentTargets are the statuses a general update may set.
var manualEnrollmentTargets = map[models.EnrollmentStatus]bool{
	models.EnrollmentStatusUnpaid:    true,
	models.EnrollmentStatusLearning:  true,
	models.EnrollmentStatusGraduated: true,
}

// StudentService handles student use-cases.
type StudentService struct {
	repo       studentRepository
	classTypes classTypeLookup
	coaches    coachLookup
	validator  *validator.Validate
	logger     *zap.Logger
	summary    summaryInvalidator
	now        func() time.Time
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, classTypes classTypeLookup, coaches coachLookup, validate *validator.Validate, logger *zap.Logger, summary summaryInvalidator) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:       repo,
		classTypes: classTypes,
		coaches:    coaches,
		validator:  validate,
		logger:     logger,
		summary:    summary,
		now:        time.Now,
	}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list students")
	}
	return students, filter.Paginate(total), nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Create enrolls a student, snapshotting the class type price as the contract.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	enrolledOn := today(s.now())
	if req.EnrollmentDate != "" {
		parsed, err := parseDate(req.EnrollmentDate, "enrollment_date")
		if err != nil {
			return nil, err
		}
		enrolledOn = parsed
	}

	classType, err := s.classTypes.FindByID(ctx, req.ClassTypeID)
	if err != nil {
		return nil, translateError(err, "class type not found", "failed to load class type")
	}
	if !classType.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class type is not active")
	}
	if err := s.checkCoach(ctx, req.CoachID); err != nil {
		return nil, err
	}
	if err := s.checkIDCard(ctx, req.IDCard, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:             req.Name,
		Gender:           req.Gender,
		IDCard:           req.IDCard,
		Phone:            req.Phone,
		ClassTypeID:      classType.ID,
		CoachID:          optionalID(req.CoachID),
		EnrollmentDate:   enrolledOn,
		ContractAmount:   classType.Price,
		ActualAmount:     decimal.Zero,
		DiscountAmount:   decimal.Zero,
		DebtAmount:       classType.Price,
		PaymentStatus:    models.PaymentStatusUnpaid,
		EnrollmentStatus: models.EnrollmentStatusUnpaid,
		Notes:            req.Notes,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "id card already used")
		}
		return nil, internalError(err, "failed to create student")
	}
	s.logger.Info("student enrolled", zap.String("student_id", student.ID), zap.String("contract_amount", student.ContractAmount.StringFixed(2)))
	if s.summary != nil {
		s.summary.Invalidate(ctx)
	}
	return student, nil
}

// Update modifies the general fields of a student. The enrollment status can
// only be moved by hand while nothing has been paid.
func (s *StudentService) Update(ctx context.Context, id string, req dto.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	student := detail.Student

	var change *repository.EnrollmentTransition
	if req.EnrollmentStatus != "" && models.EnrollmentStatus(req.EnrollmentStatus) != student.EnrollmentStatus {
		target := models.EnrollmentStatus(req.EnrollmentStatus)
		if student.EnrollmentStatus == models.EnrollmentStatusDisqualified {
			return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "disqualified students cannot change enrollment status")
		}
		if student.PaymentStatus != models.PaymentStatusUnpaid {
			return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "enrollment status is managed by payments once a payment exists")
		}
		if !manualEnrollmentTargets[target] {
			return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "enrollment status cannot be set manually to "+req.EnrollmentStatus)
		}
		change = &repository.EnrollmentTransition{From: student.EnrollmentStatus, To: target}
	}
	if err := s.checkCoach(ctx, req.CoachID); err != nil {
		return nil, err
	}
	if err := s.checkIDCard(ctx, req.IDCard, id); err != nil {
		return nil, err
	}

	student.Name = req.Name
	student.Gender = req.Gender
	student.IDCard = req.IDCard
	student.Phone = req.Phone
	student.CoachID = optionalID(req.CoachID)
	student.Notes = req.Notes
	if err := s.repo.Update(ctx, &student, change); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "id card already used")
		}
		if errors.Is(err, repository.ErrRecordLocked) {
			return nil, appErrors.Clone(appErrors.ErrInvalidStateTransition, "student status changed by a payment or exam result, reload and retry")
		}
		return nil, translateError(err, "student not found", "failed to update student")
	}
	return &student, nil
}

// Delete removes a student who has never paid.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if detail.PaymentStatus != models.PaymentStatusUnpaid {
		return appErrors.Clone(appErrors.ErrConflict, "students with payment history cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecordLocked) {
			return appErrors.Clone(appErrors.ErrConflict, "students with payment history cannot be deleted")
		}
		return internalError(err, "failed to delete student")
	}
	if s.summary != nil {
		s.summary.Invalidate(ctx)
	}
	return nil
}

func (s *StudentService) checkCoach(ctx context.Context, coachID *string) error {
	if coachID == nil || *coachID == "" {
		return nil
	}
	if _, err := s.coaches.FindByID(ctx, *coachID); err != nil {
		return translateError(err, "coach not found", "failed to load coach")
	}
	return nil
}

func (s *StudentService) checkIDCard(ctx context.Context, idCard, excludeID string) error {
	exists, err := s.repo.ExistsByIDCard(ctx, idCard, excludeID)
	if err != nil {
		return internalError(err, "failed to validate id card")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "id card already used")
	}
	return nil
}

func optionalID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}
