package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/drivingschool-api/internal/models"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

// payrollPeriod returns the first and last day of a YYYY-MM month. Rates are
// resolved against the last day.
func payrollPeriod(month string) (time.Time, time.Time, error) {
	start, err := time.Parse(monthLayout, month)
	if err != nil {
		return time.Time{}, time.Time{}, validationError(err, "month must use YYYY-MM")
	}
	end := start.AddDate(0, 1, -1)
	return start, end, nil
}

// ApplyActivity recomputes every rate-derived field of a salary record from
// the resolved rates and the coach's activity. Attendance, bonus and
// deduction are kept as they are.
func ApplyActivity(salary *models.CoachSalary, rates models.PayrollRates, activity models.CoachActivity) {
	salary.BaseDailyRate = rates.BaseDaily
	salary.Subject2Rate = rates.Subject2
	salary.Subject3Rate = rates.Subject3
	salary.RecruitmentRate = rates.Recruitment

	salary.Subject2PassCount = activity.Subject2Passes
	salary.Subject3PassCount = activity.Subject3Passes
	salary.RecruitmentCount = activity.Recruits

	salary.Subject2Commission = rates.Subject2.Mul(decimal.NewFromInt(int64(activity.Subject2Passes)))
	salary.Subject3Commission = rates.Subject3.Mul(decimal.NewFromInt(int64(activity.Subject3Passes)))
	salary.RecruitmentCommission = rates.Recruitment.Mul(decimal.NewFromInt(int64(activity.Recruits)))
	RecomputeGross(salary)
}

// RecomputeGross derives base and gross salary from the stored components.
func RecomputeGross(salary *models.CoachSalary) {
	salary.BaseSalary = salary.BaseDailyRate.Mul(decimal.NewFromInt(int64(salary.AttendanceDays)))
	salary.GrossSalary = salary.BaseSalary.
		Add(salary.Subject2Commission).
		Add(salary.Subject3Commission).
		Add(salary.RecruitmentCommission).
		Add(salary.Bonus).
		Sub(salary.Deduction)
}

func validateMoney(amount decimal.Decimal, field string) error {
	if amount.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, field+" cannot be negative")
	}
	if !amount.Equal(amount.Round(2)) {
		return appErrors.Clone(appErrors.ErrValidation, field+" supports at most two decimal places")
	}
	return nil
}
