package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/models"
)

type dashboardServiceMock struct {
	cached bool
	err    error
}

func (m *dashboardServiceMock) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	return &models.DashboardSummary{TotalStudents: 12, DebtTotal: decimal.RequireFromString("4200.50")}, m.cached, nil
}

func TestDashboardHandlerReportsCacheState(t *testing.T) {
	for _, tc := range []struct {
		cached bool
		header string
	}{{true, "HIT"}, {false, "MISS"}} {
		h := NewDashboardHandler(&dashboardServiceMock{cached: tc.cached})
		c, w := newTestContext(http.MethodGet, "/dashboard/summary", "", cashier)
		h.Summary(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, tc.header, w.Header().Get("X-Cache"))
		assert.Contains(t, w.Body.String(), `"debt_total":"4200.5"`)
	}
}

func TestDashboardHandlerHidesInternalErrors(t *testing.T) {
	h := NewDashboardHandler(&dashboardServiceMock{err: errors.New("pq: relation missing")})
	c, w := newTestContext(http.MethodGet, "/dashboard/summary", "", cashier)
	h.Summary(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}
