package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/internal/service"
	"github.com/noah-isme/competition-approval-api/pkg/response"
)

type certificateService interface {
	Certificate(ctx context.Context, actor models.Actor, id string) (*service.ExportFile, error)
	Batch(ctx context.Context, actor models.Actor, req dto.CertificateBatchRequest) (*service.ExportFile, error)
}

// CertificateHandler streams award certificate PDFs.
type CertificateHandler struct {
	certificates certificateService
}

// NewCertificateHandler constructs the handler.
func NewCertificateHandler(certificates certificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// Certificate godoc
// @Summary Download an award certificate
// @Description Watermarked with the certificate number. Participants, their department admin and school admins may download it.
// @Tags Awards
// @Produce application/pdf
// @Param id path string true "Award ID"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /awards/{id}/certificate [get]
func (h *CertificateHandler) Certificate(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	file, err := h.certificates.Certificate(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Data)
}

// Batch godoc
// @Summary Download several award certificates as one PDF
// @Tags Awards
// @Accept json
// @Produce application/pdf
// @Param payload body dto.CertificateBatchRequest true "Award IDs, at most 50"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /awards/certificates [post]
func (h *CertificateHandler) Batch(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CertificateBatchRequest
	if !bindJSON(c, &req, "invalid certificate batch") {
		return
	}
	file, err := h.certificates.Batch(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Data)
}
