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

type salaryRepository interface {
	ListConfigs(ctx context.Context, filter models.SalaryConfigFilter) ([]models.SalaryConfig, int, error)
	FindConfig(ctx context.Context, id string) (*models.SalaryConfig, error)
	CreateConfig(ctx context.Context, cfg *models.SalaryConfig) error
	UpdateConfig(ctx context.Context, cfg *models.SalaryConfig) error
	DeleteConfig(ctx context.Context, id string) error
	ResolveRate(ctx context.Context, configType models.SalaryConfigType, target time.Time) (decimal.Decimal, error)
	CoachActivity(ctx context.Context, from, to time.Time) ([]models.CoachActivity, error)
	List(ctx context.Context, filter models.CoachSalaryFilter) ([]models.CoachSalaryDetail, int, error)
	ListByMonth(ctx context.Context, month string) ([]models.CoachSalaryDetail, error)
	FindByID(ctx context.Context, id string) (*models.CoachSalaryDetail, error)
	InsertIfAbsent(ctx context.Context, salary *models.CoachSalary) (bool, error)
	Update(ctx context.Context, salary *models.CoachSalary) error
	MarkPaid(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// SalaryServiceConfig tunes payroll generation.
type SalaryServiceConfig struct {
	DefaultAttendanceDays int
}

// SalaryService runs coach payroll.
type SalaryService struct {
	repo      salaryRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       SalaryServiceConfig
	now       func() time.Time
}

// NewSalaryService constructs the payroll service.
func NewSalaryService(repo salaryRepository, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg SalaryServiceConfig) *SalaryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalaryService{repo: repo, validator: validate, logger: logger, metrics: metrics, cfg: cfg, now: time.Now}
}

// ListConfigs returns payroll rate configs.
func (s *SalaryService) ListConfigs(ctx context.Context, filter models.SalaryConfigFilter) ([]models.SalaryConfig, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	items, total, err := s.repo.ListConfigs(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list salary configs")
	}
	return items, filter.Paginate(total), nil
}

// CreateConfig adds a dated rate.
func (s *SalaryService) CreateConfig(ctx context.Context, req dto.SalaryConfigRequest) (*models.SalaryConfig, error) {
	cfg := &models.SalaryConfig{}
	if err := s.applyConfig(cfg, req); err != nil {
		return nil, err
	}
	if err := s.repo.CreateConfig(ctx, cfg); err != nil {
		return nil, internalError(err, "failed to create salary config")
	}
	return cfg, nil
}

// UpdateConfig changes a dated rate.
func (s *SalaryService) UpdateConfig(ctx context.Context, id string, req dto.SalaryConfigRequest) (*models.SalaryConfig, error) {
	cfg, err := s.repo.FindConfig(ctx, id)
	if err != nil {
		return nil, translateError(err, "salary config not found", "failed to load salary config")
	}
	if err := s.applyConfig(cfg, req); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateConfig(ctx, cfg); err != nil {
		return nil, translateError(err, "salary config not found", "failed to update salary config")
	}
	return cfg, nil
}

// DeleteConfig removes a dated rate.
func (s *SalaryService) DeleteConfig(ctx context.Context, id string) error {
	if err := s.repo.DeleteConfig(ctx, id); err != nil {
		return translateError(err, "salary config not found", "failed to delete salary config")
	}
	return nil
}

func (s *SalaryService) applyConfig(cfg *models.SalaryConfig, req dto.SalaryConfigRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid salary config payload")
	}
	if err := validateMoney(req.Amount, "amount"); err != nil {
		return err
	}
	effective, err := parseDate(req.EffectiveDate, "effective_date")
	if err != nil {
		return err
	}
	expiry, err := parseOptionalDate(req.ExpiryDate, "expiry_date")
	if err != nil {
		return err
	}
	if expiry != nil && expiry.Before(effective) {
		return appErrors.Clone(appErrors.ErrValidation, "expiry_date cannot be before effective_date")
	}
	cfg.ConfigType = models.SalaryConfigType(req.ConfigType)
	cfg.Amount = req.Amount
	cfg.EffectiveDate = effective
	cfg.ExpiryDate = expiry
	cfg.Notes = req.Notes
	return nil
}

// ResolveRates returns every rate in force on target, independently per type.
func (s *SalaryService) ResolveRates(ctx context.Context, target time.Time) (models.PayrollRates, error) {
	resolved := make(map[models.SalaryConfigType]decimal.Decimal, len(models.SalaryConfigTypes))
	for _, configType := range models.SalaryConfigTypes {
		rate, err := s.repo.ResolveRate(ctx, configType, target)
		if err != nil {
			return models.PayrollRates{}, internalError(err, "failed to resolve salary rates")
		}
		resolved[configType] = rate
	}
	return models.PayrollRates{
		BaseDaily:   resolved[models.SalaryConfigBaseDaily],
		Subject2:    resolved[models.SalaryConfigSubject2],
		Subject3:    resolved[models.SalaryConfigSubject3],
		Recruitment: resolved[models.SalaryConfigRecruitment],
	}, nil
}

// Generate creates the month's salary record for every active coach that has
// none yet. Running it again for the same month generates nothing.
func (s *SalaryService) Generate(ctx context.Context, req dto.GenerateSalaryRequest) (*models.PayrollGenerateResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid salary generation payload")
	}
	from, to, err := payrollPeriod(req.Month)
	if err != nil {
		return nil, err
	}
	rates, err := s.ResolveRates(ctx, to)
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.CoachActivity(ctx, from, to)
	if err != nil {
		return nil, internalError(err, "failed to load coach activity")
	}

	attendance := s.cfg.DefaultAttendanceDays
	if req.AttendanceDays != nil {
		attendance = *req.AttendanceDays
	}

	result := &models.PayrollGenerateResult{Month: req.Month}
	for _, a := range activity {
		if a.CoachStatus != models.CoachStatusActive {
			continue
		}
		salary := &models.CoachSalary{
			CoachID:        a.CoachID,
			Month:          req.Month,
			AttendanceDays: attendance,
			Bonus:          decimal.Zero,
			Deduction:      decimal.Zero,
			Status:         models.SalaryStatusPending,
		}
		ApplyActivity(salary, rates, a)
		inserted, err := s.repo.InsertIfAbsent(ctx, salary)
		if err != nil {
			return nil, internalError(err, "failed to generate coach salary")
		}
		if inserted {
			result.Generated++
		} else {
			result.Skipped++
		}
	}

	s.metrics.RecordPayroll("generate", result.Generated)
	s.logger.Info("payroll generated", zap.String("month", req.Month), zap.Int("generated", result.Generated), zap.Int("skipped", result.Skipped))
	return result, nil
}

// Refresh recomputes rates, counts and commissions of the month's pending
// records. Manually entered fields and paid records are left alone.
func (s *SalaryService) Refresh(ctx context.Context, req dto.RefreshSalaryRequest) (*models.PayrollRefreshResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid salary refresh payload")
	}
	from, to, err := payrollPeriod(req.Month)
	if err != nil {
		return nil, err
	}
	rates, err := s.ResolveRates(ctx, to)
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.CoachActivity(ctx, from, to)
	if err != nil {
		return nil, internalError(err, "failed to load coach activity")
	}
	byCoach := make(map[string]models.CoachActivity, len(activity))
	for _, a := range activity {
		byCoach[a.CoachID] = a
	}

	salaries, err := s.repo.ListByMonth(ctx, req.Month)
	if err != nil {
		return nil, internalError(err, "failed to load month salaries")
	}

	result := &models.PayrollRefreshResult{Month: req.Month}
	for i := range salaries {
		salary := salaries[i].CoachSalary
		if salary.Status == models.SalaryStatusPaid {
			result.SkippedPaid++
			continue
		}
		ApplyActivity(&salary, rates, byCoach[salary.CoachID])
		if err := s.repo.Update(ctx, &salary); err != nil {
			if errors.Is(err, repository.ErrRecordLocked) {
				result.SkippedPaid++
				continue
			}
			return nil, internalError(err, "failed to refresh coach salary")
		}
		result.Refreshed++
	}

	s.metrics.RecordPayroll("refresh", result.Refreshed)
	s.logger.Info("payroll refreshed", zap.String("month", req.Month), zap.Int("refreshed", result.Refreshed), zap.Int("skipped_paid", result.SkippedPaid))
	return result, nil
}

// List returns salary records with pagination.
func (s *SalaryService) List(ctx context.Context, filter models.CoachSalaryFilter) ([]models.CoachSalaryDetail, models.Pagination, error) {
	filter.ListOptions = filter.Normalize()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, internalError(err, "failed to list coach salaries")
	}
	return items, filter.Paginate(total), nil
}

// Month returns every salary record of a month for export.
func (s *SalaryService) Month(ctx context.Context, month string) ([]models.CoachSalaryDetail, error) {
	if _, _, err := payrollPeriod(month); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByMonth(ctx, month)
	if err != nil {
		return nil, internalError(err, "failed to load month salaries")
	}
	return items, nil
}

// Get returns one salary record.
func (s *SalaryService) Get(ctx context.Context, id string) (*models.CoachSalaryDetail, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translateError(err, "coach salary not found", "failed to load coach salary")
	}
	return item, nil
}

// Update edits attendance, bonus, deduction and notes of a pending record.
func (s *SalaryService) Update(ctx context.Context, id string, req dto.UpdateSalaryRequest) (*models.CoachSalaryDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid salary payload")
	}
	item, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.AttendanceDays != nil {
		item.AttendanceDays = *req.AttendanceDays
	}
	if req.Bonus != nil {
		if err := validateMoney(*req.Bonus, "bonus"); err != nil {
			return nil, err
		}
		item.Bonus = *req.Bonus
	}
	if req.Deduction != nil {
		if err := validateMoney(*req.Deduction, "deduction"); err != nil {
			return nil, err
		}
		item.Deduction = *req.Deduction
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	RecomputeGross(&item.CoachSalary)

	if err := s.repo.Update(ctx, &item.CoachSalary); err != nil {
		if errors.Is(err, repository.ErrRecordLocked) {
			return nil, appErrors.Clone(appErrors.ErrImmutable, "paid salary records cannot be changed")
		}
		return nil, internalError(err, "failed to update coach salary")
	}
	return item, nil
}

// MarkPaid settles a pending record. Paid records are immutable afterwards.
func (s *SalaryService) MarkPaid(ctx context.Context, id string) (*models.CoachSalaryDetail, error) {
	item, err := s.pending(ctx, id)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	if err := s.repo.MarkPaid(ctx, id, at); err != nil {
		if errors.Is(err, repository.ErrRecordLocked) {
			return nil, appErrors.Clone(appErrors.ErrImmutable, "salary record already paid")
		}
		return nil, internalError(err, "failed to mark salary paid")
	}
	item.Status = models.SalaryStatusPaid
	item.PaidAt = &at
	s.logger.Info("coach salary paid", zap.String("salary_id", id), zap.String("gross_salary", item.GrossSalary.StringFixed(2)))
	return item, nil
}

// Delete removes a pending record.
func (s *SalaryService) Delete(ctx context.Context, id string) error {
	if _, err := s.pending(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecordLocked) {
			return appErrors.Clone(appErrors.ErrImmutable, "paid salary records cannot be deleted")
		}
		return internalError(err, "failed to delete coach salary")
	}
	return nil
}

func (s *SalaryService) pending(ctx context.Context, id string) (*models.CoachSalaryDetail, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == models.SalaryStatusPaid {
		return nil, appErrors.Clone(appErrors.ErrImmutable, "paid salary records cannot be changed")
	}
	return item, nil
}
