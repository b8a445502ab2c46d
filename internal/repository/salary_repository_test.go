package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

func TestSalaryResolveRatePicksNewestEffective(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSalaryRepository(db)

	target := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY effective_date DESC, created_at DESC LIMIT 1")).
		WithArgs("base_daily", target).
		WillReturnRows(sqlmock.NewRows([]string{"amount"}).AddRow("150.00"))

	rate, err := repo.ResolveRate(context.Background(), models.SalaryConfigBaseDaily, target)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(150)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryResolveRateMissingIsZero(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSalaryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM salary_configs")).WillReturnError(sql.ErrNoRows)

	rate, err := repo.ResolveRate(context.Background(), models.SalaryConfigRecruitment, time.Now())
	require.NoError(t, err)
	assert.True(t, rate.IsZero())
}

func TestSalaryInsertIfAbsentReportsConflict(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSalaryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (coach_id, month) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertIfAbsent(context.Background(), &models.CoachSalary{CoachID: "coach-1", Month: "2025-03"})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryMarkPaidOnlyPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSalaryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE coach_salaries SET status = $2, paid_at = $3, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("sal-1", "paid", sqlmock.AnyArg(), "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkPaid(context.Background(), "sal-1", time.Now())
	assert.ErrorIs(t, err, ErrRecordLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
