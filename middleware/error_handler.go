package middleware

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler turns errors attached to the gin context into JSON responses.
// AppErrors map to their HTTP status; everything else is a 500 with a
// sanitized body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		log := logger.GetLogger()

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			status := appErr.GetHTTPStatus()
			log.Warnw("Request failed",
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"type", appErr.Type,
				"message", appErr.Message,
				"status", status)

			response := gin.H{
				"type":    string(appErr.Type),
				"message": appErr.Message,
				"code":    strconv.Itoa(status),
			}
			if appErr.Detail != "" && (gin.IsDebugging() ||
				appErr.Type == apperrors.ValidationError ||
				appErr.Type == apperrors.NotFoundError ||
				appErr.Type == apperrors.CapacityExceededError ||
				appErr.Type == apperrors.DuplicateRequestError) {
				response["details"] = appErr.Detail
			}
			c.JSON(status, response)
			return
		}

		if c.Errors.Last().Type == gin.ErrorTypeBind {
			log.Warnw("Request binding failed", "path", c.Request.URL.Path, "error", err)
			response := gin.H{
				"type":    string(apperrors.ValidationError),
				"message": "Failed to bind request",
				"code":    "400",
			}
			if gin.IsDebugging() {
				response["details"] = err.Error()
			}
			c.JSON(http.StatusBadRequest, response)
			return
		}

		log.Errorw("Unexpected server error",
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"type":    string(apperrors.ServerError),
			"message": "Internal server error",
			"code":    "500",
		})
	}
}
