package handlers

import (
	"net/http"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	userservice "github.com/BirdScout/bird-scout-backend/models/user/service"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/gin-gonic/gin"
)

// UserHandler exposes the profile and role endpoints.
type UserHandler struct {
	profiles *userservice.ProfileService
}

func NewUserHandler(profiles *userservice.ProfileService) *UserHandler {
	return &UserHandler{profiles: profiles}
}

// GetMeHandler returns the caller's cached profile.
func (h *UserHandler) GetMeHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// UpdateRoleHandler changes the caller's role. The change applies locally
// right away and drains to the backend through the sync queue.
func (h *UserHandler) UpdateRoleHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if !bindJSONOrError(c, &req) {
		return
	}

	var profile *types.UserProfile
	var err error
	switch types.UserRole(req.Role) {
	case types.UserRoleGuide:
		profile, err = h.profiles.PromoteToGuide(c.Request.Context(), userID)
	case types.UserRoleUser:
		profile, err = h.profiles.DemoteToUser(c.Request.Context(), userID)
	default:
		_ = c.Error(apperrors.ValidationFailed("invalid_role", "Role must be GUIDE or USER"))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RefreshRoleHandler pulls the cloud role document and reconciles it.
func (h *UserHandler) RefreshRoleHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	profile, err := h.profiles.RefreshRoleFromCloud(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
