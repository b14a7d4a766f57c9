// Package handlers exposes the HTTP surface over gin.
package handlers

import (
	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/middleware"
	"github.com/gin-gonic/gin"
)

// bindJSONOrError binds the request body and pushes a validation error on
// failure. Returns false when the caller should stop.
func bindJSONOrError(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_request", err.Error()))
		return false
	}
	return true
}

// requireUserID fetches the authenticated user or aborts with 401.
func requireUserID(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		_ = c.Error(apperrors.AuthenticationFailed("No authenticated user"))
		return "", false
	}
	return userID, true
}
