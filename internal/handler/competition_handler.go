package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/response"
)

type competitionService interface {
	List(ctx context.Context, query dto.CompetitionListQuery) ([]models.Competition, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Competition, error)
	Create(ctx context.Context, actor models.Actor, req dto.CreateCompetitionRequest) (*models.Competition, error)
	Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateCompetitionRequest) (*models.Competition, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	EditLogs(ctx context.Context, id string) ([]models.CompetitionEditLog, error)
}

// CompetitionHandler exposes the competition catalogue.
type CompetitionHandler struct {
	service competitionService
}

// NewCompetitionHandler constructs the handler.
func NewCompetitionHandler(svc competitionService) *CompetitionHandler {
	return &CompetitionHandler{service: svc}
}

// List godoc
// @Summary List competitions
// @Tags Competitions
// @Produce json
// @Param level query string false "Tier A-E"
// @Param region query string false "NATIONAL, PROVINCIAL or SCHOOL"
// @Param year query int false "Year"
// @Param search query string false "Name search"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /competitions [get]
func (h *CompetitionHandler) List(c *gin.Context) {
	var query dto.CompetitionListQuery
	if !bindQuery(c, &query) {
		return
	}
	items, page, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page)
}

// Get godoc
// @Summary Get competition
// @Tags Competitions
// @Produce json
// @Param id path string true "Competition ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /competitions/{id} [get]
func (h *CompetitionHandler) Get(c *gin.Context) {
	comp, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comp, nil)
}

// Create godoc
// @Summary Create competition
// @Tags Competitions
// @Accept json
// @Produce json
// @Param payload body dto.CreateCompetitionRequest true "Competition payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /competitions [post]
func (h *CompetitionHandler) Create(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CreateCompetitionRequest
	if !bindJSON(c, &req, "invalid competition payload") {
		return
	}
	comp, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comp, "competition created")
}

// Update godoc
// @Summary Update competition
// @Description Every changed field is logged and debits the editor's score.
// @Tags Competitions
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param payload body dto.UpdateCompetitionRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id} [put]
func (h *CompetitionHandler) Update(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.UpdateCompetitionRequest
	if !bindJSON(c, &req, "invalid competition payload") {
		return
	}
	comp, err := h.service.Update(c.Request.Context(), caller, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, comp, "competition updated")
}

// Delete godoc
// @Summary Delete competition
// @Tags Competitions
// @Param id path string true "Competition ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /competitions/{id} [delete]
func (h *CompetitionHandler) Delete(c *gin.Context) {
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

// EditLogs godoc
// @Summary Competition change history
// @Tags Competitions
// @Produce json
// @Param id path string true "Competition ID"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id}/logs [get]
func (h *CompetitionHandler) EditLogs(c *gin.Context) {
	logs, err := h.service.EditLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
