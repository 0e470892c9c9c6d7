package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/response"
)

type awardService interface {
	Create(ctx context.Context, actor models.Actor, req dto.CreateAwardRequest) (*models.Award, error)
	Decide(ctx context.Context, actor models.Actor, id string, req dto.ApprovalDecisionRequest) (*models.Award, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Award, error)
	History(ctx context.Context, actor models.Actor, id string) ([]models.ApprovalRecord, error)
	ListMine(ctx context.Context, actor models.Actor, query dto.AwardListQuery) ([]models.Award, *models.Pagination, error)
	List(ctx context.Context, actor models.Actor, query dto.AwardListQuery) ([]models.Award, *models.Pagination, error)
	PendingQueue(ctx context.Context, actor models.Actor, page, pageSize int) ([]models.Award, *models.Pagination, error)
	LatestApproved(ctx context.Context, limit int) ([]models.Award, error)
}

// AwardHandler serves award claims.
type AwardHandler struct {
	service awardService
}

// NewAwardHandler constructs the handler.
func NewAwardHandler(svc awardService) *AwardHandler {
	return &AwardHandler{service: svc}
}

// Create godoc
// @Summary File an award against an approved application
// @Tags Awards
// @Accept json
// @Produce json
// @Param payload body dto.CreateAwardRequest true "Award payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /awards [post]
func (h *AwardHandler) Create(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CreateAwardRequest
	if !bindJSON(c, &req, "invalid award payload") {
		return
	}
	award, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, award, "award filed")
}

// Decide godoc
// @Summary Approve or reject an award
// @Description Final approval credits the teacher and half to the co-teacher.
// @Tags Awards
// @Accept json
// @Produce json
// @Param id path string true "Award ID"
// @Param payload body dto.ApprovalDecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /awards/{id}/decision [post]
func (h *AwardHandler) Decide(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.ApprovalDecisionRequest
	if !bindJSON(c, &req, "invalid decision payload") {
		return
	}
	award, err := h.service.Decide(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, award, "decision recorded")
}

// Get godoc
// @Summary Get an award
// @Tags Awards
// @Produce json
// @Param id path string true "Award ID"
// @Success 200 {object} response.Envelope
// @Router /awards/{id} [get]
func (h *AwardHandler) Get(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	award, err := h.service.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, award, nil)
}

// History godoc
// @Summary Approval history of an award
// @Tags Awards
// @Produce json
// @Param id path string true "Award ID"
// @Success 200 {object} response.Envelope
// @Router /awards/{id}/history [get]
func (h *AwardHandler) History(c *gin.Context) {
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
// @Summary Awards the caller takes part in
// @Tags Awards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /awards/mine [get]
func (h *AwardHandler) ListMine(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var query dto.AwardListQuery
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
// @Summary List awards in the caller's scope
// @Tags Awards
// @Produce json
// @Param status query string false "Status filter"
// @Param awardLevel query string false "Award tier"
// @Param competitionLevel query string false "Competition tier"
// @Param departmentId query string false "Department filter (school admins)"
// @Success 200 {object} response.Envelope
// @Router /awards [get]
func (h *AwardHandler) List(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var query dto.AwardListQuery
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
// @Summary Awards waiting for the caller's decision
// @Tags Awards
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /awards/pending [get]
func (h *AwardHandler) Pending(c *gin.Context) {
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

// Latest godoc
// @Summary Most recently approved awards
// @Tags Awards
// @Produce json
// @Param limit query int false "Maximum rows (default 20, max 100)"
// @Success 200 {object} response.Envelope
// @Router /awards/latest [get]
func (h *AwardHandler) Latest(c *gin.Context) {
	items, err := h.service.LatestApproved(c.Request.Context(), intQuery(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
