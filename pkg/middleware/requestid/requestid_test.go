package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = FromContext(c.Request.Context())
		assert.Equal(t, seen, Value(c))
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequestIDReusesWellFormedHeader(t *testing.T) {
	rec, seen := serve(t, "req-12345678")
	assert.Equal(t, "req-12345678", seen)
	assert.Equal(t, "req-12345678", rec.Header().Get(headerKey))
}

func TestRequestIDReplacesMissingOrMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "bad id\nwith newline"} {
		rec, seen := serve(t, header)
		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(headerKey))
	}
}
