package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drivingschool-api/internal/models"
	appErrors "github.com/noah-isme/drivingschool-api/pkg/errors"
)

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func newProtectedRouter(audit *auditStub, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := tokenStub{
		"admin":    {ID: "u-admin", Username: "admin", Role: models.RoleAdmin},
		"finance":  {ID: "u-fin", Username: "cashier", Role: models.RoleFinance},
		"academic": {ID: "u-aca", Username: "registrar", Role: models.RoleAcademic},
	}
	r := gin.New()
	r.DELETE("/payments/:id",
		JWT(tokens),
		RequireRoles(models.RoleFinance),
		Audit(audit, nil, models.AuditActionPaymentDelete, "payment"),
		func(c *gin.Context) { c.Status(status) },
	)
	return r
}

func call(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, "/payments/rec-1", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newProtectedRouter(&auditStub{}, http.StatusOK)

	assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, "forged").Code)
}

func TestRoleGate(t *testing.T) {
	audit := &auditStub{}
	r := newProtectedRouter(audit, http.StatusOK)

	assert.Equal(t, http.StatusForbidden, call(r, "academic").Code)
	assert.Equal(t, http.StatusOK, call(r, "finance").Code)
	assert.Equal(t, http.StatusOK, call(r, "admin").Code)
	assert.Len(t, audit.logs, 2)
}

func TestAuditRecordsSuccessfulMutationOnly(t *testing.T) {
	audit := &auditStub{}
	call(newProtectedRouter(audit, http.StatusBadRequest), "finance")
	assert.Empty(t, audit.logs)

	audit.err = errors.New("db down")
	rec := call(newProtectedRouter(audit, http.StatusOK), "finance")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, audit.logs, 1)
	entry := audit.logs[0]
	assert.Equal(t, "u-fin", *entry.UserID)
	assert.Equal(t, "rec-1", *entry.ResourceID)
	assert.Equal(t, models.AuditActionPaymentDelete, entry.Action)
	assert.Contains(t, string(entry.NewValues), `"status":200`)
}
