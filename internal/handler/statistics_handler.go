package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/internal/service"
	"github.com/noah-isme/competition-approval-api/pkg/response"
)

type statisticsService interface {
	MyPerformance(ctx context.Context, actor models.Actor) (*models.MyPerformance, error)
	DepartmentRanking(ctx context.Context, actor models.Actor, query dto.RankingQuery) ([]models.RankingEntry, *models.Pagination, error)
	SchoolOverview(ctx context.Context, actor models.Actor) (*models.SchoolOverview, error)
	CompetitionStats(ctx context.Context, actor models.Actor, query dto.CompetitionStatsQuery) (*models.CompetitionStats, error)
}

type rewardService interface {
	AnnualRewards(ctx context.Context, actor models.Actor, year int) ([]models.AnnualReward, error)
	Export(ctx context.Context, actor models.Actor, query dto.RewardExportQuery) (*service.ExportFile, error)
}

// StatisticsHandler serves dashboards and the reward report.
type StatisticsHandler struct {
	stats   statisticsService
	rewards rewardService
}

// NewStatisticsHandler constructs the handler.
func NewStatisticsHandler(stats statisticsService, rewards rewardService) *StatisticsHandler {
	return &StatisticsHandler{stats: stats, rewards: rewards}
}

// MyPerformance godoc
// @Summary My performance dashboard
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/performance [get]
func (h *StatisticsHandler) MyPerformance(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	perf, err := h.stats.MyPerformance(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perf, nil)
}

// DepartmentRanking godoc
// @Summary Teachers of a department ranked by score
// @Tags Statistics
// @Produce json
// @Param departmentId query string false "Department (forced for department admins)"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /stats/ranking [get]
func (h *StatisticsHandler) DepartmentRanking(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var query dto.RankingQuery
	if !bindQuery(c, &query) {
		return
	}
	entries, page, err := h.stats.DepartmentRanking(c.Request.Context(), caller, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, page)
}

// SchoolOverview godoc
// @Summary School-wide totals
// @Tags Statistics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/overview [get]
func (h *StatisticsHandler) SchoolOverview(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	overview, err := h.stats.SchoolOverview(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// AnnualRewards godoc
// @Summary Reward totals per teacher for a year
// @Tags Rewards
// @Produce json
// @Param year query int false "Year (defaults to the current year)"
// @Success 200 {object} response.Envelope
// @Router /rewards [get]
func (h *StatisticsHandler) AnnualRewards(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	year := intQuery(c, "year", time.Now().Year())
	rewards, err := h.rewards.AnnualRewards(c.Request.Context(), caller, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rewards, nil, map[string]interface{}{"year": year})
}

// CompetitionStats godoc
// @Summary Competition and award counts by tier
// @Tags Statistics
// @Produce json
// @Param year query int false "Restrict to one competition year"
// @Success 200 {object} response.Envelope
// @Router /stats/competitions [get]
func (h *StatisticsHandler) CompetitionStats(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var query dto.CompetitionStatsQuery
	if !bindQuery(c, &query) {
		return
	}
	stats, err := h.stats.CompetitionStats(c.Request.Context(), caller, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// ExportRewards godoc
// @Summary Download the reward report
// @Tags Rewards
// @Produce text/csv
// @Produce application/pdf
// @Param year query int true "Year"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /rewards/export [get]
func (h *StatisticsHandler) ExportRewards(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var query dto.RewardExportQuery
	if !bindQuery(c, &query) {
		return
	}
	file, err := h.rewards.Export(c.Request.Context(), caller, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Data)
}
