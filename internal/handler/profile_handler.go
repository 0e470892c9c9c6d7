package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/competition-approval-api/internal/dto"
	"github.com/noah-isme/competition-approval-api/internal/models"
	"github.com/noah-isme/competition-approval-api/pkg/response"
)

type profileService interface {
	UpdateMyProfile(ctx context.Context, actor models.Actor, req dto.UpdateProfileRequest) (*dto.ProfileUpdateResult, error)
	ListMyEditLogs(ctx context.Context, actor models.Actor) ([]models.UserInfoEditLog, error)
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Update godoc
// @Summary Edit my profile
// @Description Edits beyond the monthly free quota cost performance points.
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /me/profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req, "invalid profile payload") {
		return
	}
	res, err := h.service.UpdateMyProfile(c.Request.Context(), caller, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	message := "profile updated"
	if len(res.ChangedFields) == 0 {
		message = "nothing changed"
	}
	response.Success(c, http.StatusOK, res, message)
}

// EditLogs godoc
// @Summary My profile edit history
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/profile/logs [get]
func (h *ProfileHandler) EditLogs(c *gin.Context) {
	caller, ok := actor(c)
	if !ok {
		return
	}
	logs, err := h.service.ListMyEditLogs(c.Request.Context(), caller)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
