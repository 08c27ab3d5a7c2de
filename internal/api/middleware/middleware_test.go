package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"valet_parking/internal/domain"
)

type stubValidator map[string]domain.Identity

func (s stubValidator) ValidateToken(tok string) (domain.Identity, time.Time, error) {
	id, ok := s[tok]
	if !ok {
		return domain.Identity{}, time.Time{}, errors.New("token không hợp lệ")
	}
	return id, time.Now().Add(time.Hour), nil
}

func newEngine(m *AuthMiddleware, roles ...domain.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", m.Authenticate(), m.AuthorizeRole(roles...), func(c *gin.Context) {
		id, _ := CurrentIdentity(c)
		c.String(http.StatusOK, id.EmployeeID)
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(AuthorizationHeaderKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{
		"admin-token": {EmployeeID: "a1", Role: domain.RoleAdmin},
		"valet-token": {EmployeeID: "v1", Role: domain.RoleValet},
	})
	r := newEngine(m, domain.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token admin-token").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer nope").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer valet-token").Code)

	w := do(r, "bearer admin-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", w.Body.String())
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(60, 2).Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(r, "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_ZeroPerMinuteIsUnlimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	assert.NotPanics(t, func() { r.Use(NewRateLimiter(0, 1).Handler()) })
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, "").Code)
	}
}
