package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/middleware"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/internal/service"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
)

type certificateServiceMock struct {
	lastID    string
	lastBatch dto.CertificateBatchRequest
	err       error
}

func (m *certificateServiceMock) Certificate(ctx context.Context, actor models.Actor, id string) (*service.ExportFile, error) {
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportFile{Filename: "award_CERT-1.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func (m *certificateServiceMock) Batch(ctx context.Context, actor models.Actor, req dto.CertificateBatchRequest) (*service.ExportFile, error) {
	m.lastBatch = req
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportFile{Filename: "awards_batch.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}, nil
}

func TestCertificateHandlerStreamsPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	certs := &certificateServiceMock{}
	handler := NewCertificateHandler(certs)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/awards/w1/certificate", nil)
	c.Params = gin.Params{{Key: "id", Value: "w1"}}
	c.Set(middleware.ContextUserKey, deptClaims())

	handler.Certificate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "w1", certs.lastID)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "award_CERT-1.pdf")
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}

func TestCertificateHandlerBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	certs := &certificateServiceMock{}
	handler := NewCertificateHandler(certs)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/awards/certificates", bytes.NewBufferString(`{"awardIds":["w1","w2"]}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, schoolClaims())

	handler.Batch(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"w1", "w2"}, certs.lastBatch.AwardIDs)

	certs.err = appErrors.Clone(appErrors.ErrNotFound, "no matching awards found")
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/awards/certificates", bytes.NewBufferString(`{"awardIds":["w9"]}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, schoolClaims())

	handler.Batch(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/awards/certificates", bytes.NewBufferString(`{"awardIds":`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, schoolClaims())

	handler.Batch(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
