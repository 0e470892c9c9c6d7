package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/response"
)

type applicationService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateApplicationRequest) (*models.Application, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateApplicationRequest) (*models.Application, error)
	Submit(ctx context.Context, actor models.Actor, id string) (*models.Application, error)
	Decide(ctx context.Context, actor models.Actor, id string, req dto.ApprovalDecisionRequest) (*models.Application, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Get(ctx context.Context, actor models.Actor, id string) (*models.Application, error)
	History(ctx context.Context, actor models.Actor, id string) ([]models.ApprovalRecord, error)
	ListMine(ctx context.Context, actor models.Actor, query dto.ApplicationListQuery) ([]models.Application, *models.Pagination, error)
	List(ctx context.Context, actor models.Actor, query dto.ApplicationListQuery) ([]models.Application, *models.Pagination, error)
	PendingQueue(ctx context.Context, actor models.Actor, page, pageSize int) ([]models.Application, *models.Pagination, error)
}

// ApplicationHandler serves competition applications and their approval flow.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(svc applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: svc}
}

// Create godoc
// @Summary Draft an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.CreateApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CreateApplicationRequest
	if !bindJSON(c, &req, "invalid application payload") {
		return
	}
	app, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, app, "application drafted")
}

// Update godoc
// @Summary Edit a draft or returned application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.UpdateApplicationRequest true "Co-teacher and roster"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id} [put]
func (h *ApplicationHandler) Update(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.UpdateApplicationRequest
	if !bindJSON(c, &req, "invalid application payload") {
		return
	}
	app, err := h.service.Update(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, app, "application updated")
}

// Submit godoc
// @Summary Submit an application for department review
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/submit [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	app, err := h.service.Submit(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, app, "application submitted")
}

// Decide godoc
// @Summary Approve, reject or return an application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.ApprovalDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/decision [post]
func (h *ApplicationHandler) Decide(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.ApprovalDecisionRequest
	if !bindJSON(c, &req, "invalid decision payload") {
		return
	}
	app, err := h.service.Decide(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, app, "decision recorded")
}

// Delete godoc
// @Summary Delete a draft application
// @Tags Applications
// @Param id path string true "Application ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /applications/{id} [delete]
func (h *ApplicationHandler) Delete(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), caller, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get an application with its roster
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	app, err := h.service.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// History godoc
// @Summary Approval history of an application, newest first
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/history [get]
func (h *ApplicationHandler) History(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	records, err := h.service.History(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ListMine godoc
// @Summary Applications the caller takes part in
// @Tags Applications
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications/mine [get]
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var query dto.ApplicationListQuery
	if !bindQuery(c, &query) {
		return
	}
	items, page, err := h.service.ListMine(c.Request.Context(), caller, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// List godoc
// @Summary List applications in the caller's scope
// @Tags Applications
// @Produce json
// @Param status query string false "Status filter"
// @Param competitionId query string false "Competition filter"
// @Param teacherId query string false "Teacher filter"
// @Param departmentId query string false "Department filter (school admins)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var query dto.ApplicationListQuery
	if !bindQuery(c, &query) {
		return
	}
	items, page, err := h.service.List(c.Request.Context(), caller, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Pending godoc
// @Summary Applications waiting for the caller's decision
// @Tags Applications
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications/pending [get]
func (h *ApplicationHandler) Pending(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	items, page, err := h.service.PendingQueue(c.Request.Context(), caller, intQuery(c, "page", 1), intQuery(c, "pageSize", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}
