package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/middleware"
	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
)

type applicationServiceMock struct {
	applicationService

	decideResp  *models.Application
	decideErr   error
	lastActor   models.Actor
	lastID      string
	lastDecide  dto.ApprovalDecisionRequest
	lastQuery   dto.ApplicationListQuery
	lastPage    int
	lastSize    int
	decideCalls int
}

func (m *applicationServiceMock) Decide(ctx context.Context, actor models.Actor, id string, req dto.ApprovalDecisionRequest) (*models.Application, error) {
	m.decideCalls++
	m.lastActor = actor
	m.lastID = id
	m.lastDecide = req
	return m.decideResp, m.decideErr
}

func (m *applicationServiceMock) ListMine(ctx context.Context, actor models.Actor, query dto.ApplicationListQuery) ([]models.Application, *models.Pagination, error) {
	m.lastActor = actor
	m.lastQuery = query
	return []models.Application{{ID: "app-1"}}, &models.Pagination{Page: 1, PageSize: 20, Total: 1}, nil
}

func (m *applicationServiceMock) PendingQueue(ctx context.Context, actor models.Actor, page, pageSize int) ([]models.Application, *models.Pagination, error) {
	m.lastPage = page
	m.lastSize = pageSize
	return nil, &models.Pagination{Page: page, PageSize: pageSize}, nil
}

func deptClaims() *models.JWTClaims {
	dept := "dept-math"
	return &models.JWTClaims{UserID: "dept-admin", Role: models.RoleDepartmentAdmin, DepartmentID: &dept}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestApplicationHandlerDecide(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{decideResp: &models.Application{ID: "app-1", Status: models.StatusPendingSchool}}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/decision", bytes.NewBufferString(`{"action":"APPROVE","comment":"ok"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "app-1"}}
	c.Set(middleware.ContextUserKey, deptClaims())

	handler.Decide(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "app-1", mockSvc.lastID)
	assert.Equal(t, models.ActionApprove, mockSvc.lastDecide.Action)
	assert.Equal(t, "dept-math", mockSvc.lastActor.Department())

	body := decodeEnvelope(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "PENDING_SCHOOL", data["status"])
}

func TestApplicationHandlerDecideMapsServiceErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]struct {
		err    error
		status int
	}{
		"wrong stage":  {appErrors.ErrInvalidState, http.StatusConflict},
		"lost race":    {appErrors.ErrConflict, http.StatusConflict},
		"out of scope": {appErrors.ErrForbidden, http.StatusForbidden},
		"missing":      {appErrors.ErrNotFound, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewApplicationHandler(&applicationServiceMock{decideErr: tc.err})
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/decision", bytes.NewBufferString(`{"action":"REJECT"}`))
			req.Header.Set("Content-Type", "application/json")
			c.Request = req
			c.Set(middleware.ContextUserKey, deptClaims())

			handler.Decide(c)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, false, decodeEnvelope(t, w)["success"])
		})
	}
}

func TestApplicationHandlerDecideInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/decision", bytes.NewBufferString(`{"action":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, deptClaims())

	handler.Decide(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, mockSvc.decideCalls)
}

func TestApplicationHandlerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/applications/app-1/decision", bytes.NewBufferString(`{"action":"APPROVE"}`))

	handler.Decide(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, mockSvc.decideCalls)
}

func TestApplicationHandlerListMineBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/applications/mine?status=DRAFT&page=2", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	handler.ListMine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DRAFT", mockSvc.lastQuery.Status)
	assert.Equal(t, 2, mockSvc.lastQuery.Page)
	assert.Equal(t, "teacher-1", mockSvc.lastActor.UserID)

	body := decodeEnvelope(t, w)
	pagination := body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["total"])
}

func TestApplicationHandlerPendingDefaultsPaging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &applicationServiceMock{}
	handler := NewApplicationHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/applications/pending?pageSize=abc", nil)
	c.Set(middleware.ContextUserKey, deptClaims())

	handler.Pending(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mockSvc.lastPage)
	assert.Equal(t, 20, mockSvc.lastSize)
}
