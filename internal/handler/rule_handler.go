package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/response"
)

type ruleService interface {
	Tables(ctx context.Context) (*models.RuleTables, error)
	UpsertPerformance(ctx context.Context, actor models.Actor, req dto.UpsertPerformanceRulesRequest) (*models.RuleTables, error)
	UpsertReward(ctx context.Context, actor models.Actor, req dto.UpsertRewardRulesRequest) (*models.RuleTables, error)
}

// RuleHandler exposes the performance and reward rule tables.
type RuleHandler struct {
	service ruleService
}

// NewRuleHandler constructs the handler.
func NewRuleHandler(svc ruleService) *RuleHandler {
	return &RuleHandler{service: svc}
}

// Tables godoc
// @Summary Current rule tables
// @Tags Rules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rules [get]
func (h *RuleHandler) Tables(c *gin.Context) {
	tables, err := h.service.Tables(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tables, nil)
}

// UpsertPerformance godoc
// @Summary Write performance rules
// @Description Awards already filed keep the values they were filed with.
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body dto.UpsertPerformanceRulesRequest true "Rule rows"
// @Success 200 {object} response.Envelope
// @Router /rules/performance [put]
func (h *RuleHandler) UpsertPerformance(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.UpsertPerformanceRulesRequest
	if !bindJSON(c, &req, "invalid rule payload") {
		return
	}
	tables, err := h.service.UpsertPerformance(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tables, "performance rules saved")
}

// UpsertReward godoc
// @Summary Write reward rules
// @Tags Rules
// @Accept json
// @Produce json
// @Param payload body dto.UpsertRewardRulesRequest true "Rule rows"
// @Success 200 {object} response.Envelope
// @Router /rules/reward [put]
func (h *RuleHandler) UpsertReward(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.UpsertRewardRulesRequest
	if !bindJSON(c, &req, "invalid rule payload") {
		return
	}
	tables, err := h.service.UpsertReward(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tables, "reward rules saved")
}
