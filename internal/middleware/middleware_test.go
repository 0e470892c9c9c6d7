package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type recordingObserver struct {
	path   string
	status int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.path, r.status = path, status
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newRouter(role models.UserRole, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u-1", Role: role}}))
	handlers := append(guards, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/users/:id", handlers...)
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWT(t *testing.T) {
	r := newRouter(models.RoleTeacher)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/users/u-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/users/u-1", "bad").Code)
	assert.Equal(t, http.StatusOK, do(r, "/users/u-1", "good").Code)
}

func TestRBAC(t *testing.T) {
	r := newRouter(models.RoleTeacher, RBAC(string(models.RoleSuperAdmin), Self))
	assert.Equal(t, http.StatusOK, do(r, "/users/u-1", "good").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/users/u-2", "good").Code)

	r = newRouter(models.RoleDepartmentAdmin, Admins())
	assert.Equal(t, http.StatusOK, do(r, "/users/u-2", "good").Code)

	r = newRouter(models.RoleDepartmentAdmin, SchoolAdmins())
	assert.Equal(t, http.StatusForbidden, do(r, "/users/u-2", "good").Code)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Metrics(obs))
	engine.GET("/competitions/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do(engine, "/competitions/c-1", "")
	assert.Equal(t, "/competitions/:id", obs.path)
	assert.Equal(t, http.StatusNoContent, obs.status)

	do(engine, "/nowhere", "")
	assert.Equal(t, "unmatched", obs.path)
}

func TestAuditRecordsSuccessfulWrites(t *testing.T) {
	rec := &auditRecorder{}
	r := newRouter(models.RoleSuperAdmin, Audit(rec, nil, models.AuditActionRulesUpdate, "rules"))

	require.Equal(t, http.StatusOK, do(r, "/users/u-9", "good").Code)
	require.Len(t, rec.logs, 1)
	assert.Equal(t, "u-1", *rec.logs[0].UserID)
	assert.Equal(t, "u-9", *rec.logs[0].ResourceID)

	do(r, "/users/u-9", "bad")
	assert.Len(t, rec.logs, 1)
}
