package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/drivingschool-api/internal/handler"
	"github.com/noah-isme/drivingschool-api/internal/models"
	"github.com/noah-isme/drivingschool-api/internal/service"
	"github.com/noah-isme/drivingschool-api/pkg/config"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type staticTokens map[string]models.UserRole

func (s staticTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	role, ok := s[token]
	if !ok {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.JWTClaims{ID: "u-" + token, Username: token, Role: role}, nil
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api"}
	return New(Dependencies{
		Config:  cfg,
		Metrics: service.NewMetricsService(),
		Tokens:  staticTokens{"academic": models.RoleAcademic, "finance": models.RoleFinance},
	}, Handlers{
		Auth:       handler.NewAuthHandler(nil),
		ClassTypes: handler.NewClassTypeHandler(nil),
		Students:   handler.NewStudentHandler(nil),
		Coaches:    handler.NewCoachHandler(nil),
		Payments:   handler.NewPaymentHandler(nil, nil),
		Exams:      handler.NewExamHandler(nil, nil, nil),
		Salaries:   handler.NewSalaryHandler(nil, nil),
		Dashboard:  handler.NewDashboardHandler(nil),
		Metrics:    handler.NewMetricsHandler(service.NewMetricsService(), nil),
	})
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestEngine()

	rec := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestDocsHiddenInProduction(t *testing.T) {
	r := newTestEngine()

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/docs/index.html", "").Code)
}

func TestAPIRequiresToken(t *testing.T) {
	r := newTestEngine()

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/payments", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/students", "bogus").Code)
}

func TestRoleBoundaries(t *testing.T) {
	r := newTestEngine()

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/payments", "academic").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/coach-salary", "academic").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/api/exam-warnings", "finance").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/api/class-types", "finance").Code)
}

func TestPanicsAreRecovered(t *testing.T) {
	r := newTestEngine()

	// The handler has no service behind it, so reaching it panics.
	rec := serve(r, http.MethodGet, "/api/dashboard/summary", "finance")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
