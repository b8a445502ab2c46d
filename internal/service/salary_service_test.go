package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/dto"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/repository"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type salaryRepoStub struct {
	rates    map[models.SalaryConfigType]decimal.Decimal
	activity []models.CoachActivity
	salaries map[string]*models.CoachSalary
	configs  map[string]*models.SalaryConfig
	seq      int
	target   time.Time
}

func newSalaryRepoStub() *salaryRepoStub {
	return &salaryRepoStub{
		rates:    map[models.SalaryConfigType]decimal.Decimal{},
		salaries: map[string]*models.CoachSalary{},
		configs:  map[string]*models.SalaryConfig{},
	}
}

func (r *salaryRepoStub) ListConfigs(ctx context.Context, filter models.SalaryConfigFilter) ([]models.SalaryConfig, int, error) {
	var out []models.SalaryConfig
	for _, cfg := range r.configs {
		out = append(out, *cfg)
	}
	return out, len(out), nil
}

func (r *salaryRepoStub) FindConfig(ctx context.Context, id string) (*models.SalaryConfig, error) {
	cfg, ok := r.configs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *cfg
	return &copied, nil
}

func (r *salaryRepoStub) CreateConfig(ctx context.Context, cfg *models.SalaryConfig) error {
	r.seq++
	cfg.ID = fmt.Sprintf("cfg-%d", r.seq)
	copied := *cfg
	r.configs[cfg.ID] = &copied
	return nil
}

func (r *salaryRepoStub) UpdateConfig(ctx context.Context, cfg *models.SalaryConfig) error {
	if _, ok := r.configs[cfg.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *cfg
	r.configs[cfg.ID] = &copied
	return nil
}

func (r *salaryRepoStub) DeleteConfig(ctx context.Context, id string) error {
	if _, ok := r.configs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.configs, id)
	return nil
}

func (r *salaryRepoStub) ResolveRate(ctx context.Context, configType models.SalaryConfigType, target time.Time) (decimal.Decimal, error) {
	r.target = target
	return r.rates[configType], nil
}

func (r *salaryRepoStub) CoachActivity(ctx context.Context, from, to time.Time) ([]models.CoachActivity, error) {
	return r.activity, nil
}

func (r *salaryRepoStub) detail(s *models.CoachSalary) models.CoachSalaryDetail {
	return models.CoachSalaryDetail{CoachSalary: *s, CoachName: "Coach " + s.CoachID}
}

func (r *salaryRepoStub) List(ctx context.Context, filter models.CoachSalaryFilter) ([]models.CoachSalaryDetail, int, error) {
	out, _ := r.ListByMonth(ctx, filter.Month)
	return out, len(out), nil
}

func (r *salaryRepoStub) ListByMonth(ctx context.Context, month string) ([]models.CoachSalaryDetail, error) {
	var out []models.CoachSalaryDetail
	for _, s := range r.salaries {
		if month == "" || s.Month == month {
			out = append(out, r.detail(s))
		}
	}
	return out, nil
}

func (r *salaryRepoStub) FindByID(ctx context.Context, id string) (*models.CoachSalaryDetail, error) {
	s, ok := r.salaries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	d := r.detail(s)
	return &d, nil
}

func (r *salaryRepoStub) InsertIfAbsent(ctx context.Context, salary *models.CoachSalary) (bool, error) {
	for _, s := range r.salaries {
		if s.CoachID == salary.CoachID && s.Month == salary.Month {
			return false, nil
		}
	}
	r.seq++
	salary.ID = fmt.Sprintf("sal-%d", r.seq)
	copied := *salary
	r.salaries[salary.ID] = &copied
	return true, nil
}

func (r *salaryRepoStub) Update(ctx context.Context, salary *models.CoachSalary) error {
	stored, ok := r.salaries[salary.ID]
	if !ok || stored.Status == models.SalaryStatusPaid {
		return repository.ErrRecordLocked
	}
	copied := *salary
	r.salaries[salary.ID] = &copied
	return nil
}

func (r *salaryRepoStub) MarkPaid(ctx context.Context, id string, at time.Time) error {
	stored, ok := r.salaries[id]
	if !ok || stored.Status == models.SalaryStatusPaid {
		return repository.ErrRecordLocked
	}
	stored.Status = models.SalaryStatusPaid
	stored.PaidAt = &at
	return nil
}

func (r *salaryRepoStub) Delete(ctx context.Context, id string) error {
	stored, ok := r.salaries[id]
	if !ok || stored.Status == models.SalaryStatusPaid {
		return repository.ErrRecordLocked
	}
	delete(r.salaries, id)
	return nil
}

func newSalaryServiceForTest() (*SalaryService, *salaryRepoStub) {
	repo := newSalaryRepoStub()
	repo.rates[models.SalaryConfigBaseDaily] = dec("100")
	repo.rates[models.SalaryConfigSubject2] = dec("50")
	repo.rates[models.SalaryConfigSubject3] = dec("80")
	repo.rates[models.SalaryConfigRecruitment] = dec("200")
	repo.activity = []models.CoachActivity{
		{CoachID: "c-1", CoachStatus: models.CoachStatusActive, Subject2Passes: 2, Subject3Passes: 1, Recruits: 1},
		{CoachID: "c-2", CoachStatus: models.CoachStatusActive},
		{CoachID: "c-3", CoachStatus: models.CoachStatusResigned, Subject2Passes: 4},
	}
	svc := NewSalaryService(repo, nil, nil, nil, SalaryServiceConfig{DefaultAttendanceDays: 22})
	svc.now = func() time.Time { return time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func salaryFor(repo *salaryRepoStub, coachID string) *models.CoachSalary {
	for _, s := range repo.salaries {
		if s.CoachID == coachID {
			return s
		}
	}
	return nil
}

func TestSalaryGenerateTwiceIsIdempotent(t *testing.T) {
	svc, repo := newSalaryServiceForTest()
	ctx := context.Background()

	first, err := svc.Generate(ctx, dto.GenerateSalaryRequest{Month: "2025-03"})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Generated)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), repo.target)

	second, err := svc.Generate(ctx, dto.GenerateSalaryRequest{Month: "2025-03"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Generated)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, repo.salaries, 2)
	assert.Nil(t, salaryFor(repo, "c-3"))
}

func TestSalaryGenerateComputesGross(t *testing.T) {
	svc, repo := newSalaryServiceForTest()
	days := 20

	_, err := svc.Generate(context.Background(), dto.GenerateSalaryRequest{Month: "2025-03", AttendanceDays: &days})
	require.NoError(t, err)

	s := salaryFor(repo, "c-1")
	require.NotNil(t, s)
	assert.True(t, dec("2000").Equal(s.BaseSalary))
	assert.True(t, dec("100").Equal(s.Subject2Commission))
	assert.True(t, dec("80").Equal(s.Subject3Commission))
	assert.True(t, dec("200").Equal(s.RecruitmentCommission))
	assert.True(t, dec("2380").Equal(s.GrossSalary))
	assert.Equal(t, models.SalaryStatusPending, s.Status)
}

func TestSalaryRefreshKeepsManualFieldsAndSkipsPaid(t *testing.T) {
	svc, repo := newSalaryServiceForTest()
	ctx := context.Background()
	_, err := svc.Generate(ctx, dto.GenerateSalaryRequest{Month: "2025-03"})
	require.NoError(t, err)

	pending := salaryFor(repo, "c-1")
	bonus := dec("300")
	_, err = svc.Update(ctx, pending.ID, dto.UpdateSalaryRequest{Bonus: &bonus})
	require.NoError(t, err)

	paid := salaryFor(repo, "c-2")
	_, err = svc.MarkPaid(ctx, paid.ID)
	require.NoError(t, err)
	paidGross := paid.GrossSalary

	repo.rates[models.SalaryConfigSubject2] = dec("60")
	repo.activity[0].Subject2Passes = 3
	repo.activity[1].Subject3Passes = 5

	result, err := svc.Refresh(ctx, dto.RefreshSalaryRequest{Month: "2025-03"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Refreshed)
	assert.Equal(t, 1, result.SkippedPaid)

	refreshed := salaryFor(repo, "c-1")
	assert.Equal(t, 3, refreshed.Subject2PassCount)
	assert.True(t, dec("180").Equal(refreshed.Subject2Commission))
	assert.True(t, dec("300").Equal(refreshed.Bonus))
	assert.Equal(t, 22, refreshed.AttendanceDays)
	// 2200 + 180 + 80 + 200 + 300
	assert.True(t, dec("2960").Equal(refreshed.GrossSalary))

	untouched := salaryFor(repo, "c-2")
	assert.Equal(t, 0, untouched.Subject3PassCount)
	assert.True(t, paidGross.Equal(untouched.GrossSalary))
}

func TestSalaryPaidRecordIsImmutable(t *testing.T) {
	svc, repo := newSalaryServiceForTest()
	ctx := context.Background()
	_, err := svc.Generate(ctx, dto.GenerateSalaryRequest{Month: "2025-03"})
	require.NoError(t, err)
	id := salaryFor(repo, "c-1").ID

	paid, err := svc.MarkPaid(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)

	days := 10
	_, err = svc.Update(ctx, id, dto.UpdateSalaryRequest{AttendanceDays: &days})
	assertAppCode(t, err, appErrors.ErrImmutable.Code)

	_, err = svc.MarkPaid(ctx, id)
	assertAppCode(t, err, appErrors.ErrImmutable.Code)

	err = svc.Delete(ctx, id)
	assertAppCode(t, err, appErrors.ErrImmutable.Code)
	assert.Len(t, repo.salaries, 2)
}

func TestSalaryUpdateRejectsNegativeDeduction(t *testing.T) {
	svc, repo := newSalaryServiceForTest()
	ctx := context.Background()
	_, err := svc.Generate(ctx, dto.GenerateSalaryRequest{Month: "2025-03"})
	require.NoError(t, err)

	deduction := dec("-5")
	_, err = svc.Update(ctx, salaryFor(repo, "c-1").ID, dto.UpdateSalaryRequest{Deduction: &deduction})
	assertAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestSalaryGenerateRejectsBadMonth(t *testing.T) {
	svc, _ := newSalaryServiceForTest()

	_, err := svc.Generate(context.Background(), dto.GenerateSalaryRequest{Month: "2025/03"})
	assertAppCode(t, err, appErrors.ErrValidation.Code)
}

func TestSalaryConfigRejectsExpiryBeforeEffective(t *testing.T) {
	svc, _ := newSalaryServiceForTest()

	_, err := svc.CreateConfig(context.Background(), dto.SalaryConfigRequest{
		ConfigType:    string(models.SalaryConfigBaseDaily),
		Amount:        dec("120"),
		EffectiveDate: "2025-03-01",
		ExpiryDate:    "2025-02-01",
	})
	assertAppCode(t, err, appErrors.ErrValidation.Code)

	cfg, err := svc.CreateConfig(context.Background(), dto.SalaryConfigRequest{
		ConfigType:    string(models.SalaryConfigBaseDaily),
		Amount:        dec("120"),
		EffectiveDate: "2025-03-01",
	})
	require.NoError(t, err)
	assert.Nil(t, cfg.ExpiryDate)
}
