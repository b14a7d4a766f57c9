package handlers

import (
	"net/http"
	"strconv"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/store"
	"github.com/gin-gonic/gin"
)

// SyncHandler exposes the durable task queue: failed tasks are visible and
// manually retryable instead of silently dropped.
type SyncHandler struct {
	tasks    store.SyncTaskStore
	notifier interface{ Poke() }
}

func NewSyncHandler(tasks store.SyncTaskStore, notifier interface{ Poke() }) *SyncHandler {
	return &SyncHandler{tasks: tasks, notifier: notifier}
}

// ListPendingHandler lists tasks still awaiting propagation.
func (h *SyncHandler) ListPendingHandler(c *gin.Context) {
	pending, err := h.tasks.GetPending(c.Request.Context(), 100)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": pending})
}

// ListFailedHandler lists tasks that exhausted their attempts.
func (h *SyncHandler) ListFailedHandler(c *gin.Context) {
	failed, err := h.tasks.ListFailed(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": failed})
}

// RetryHandler puts a failed task back in the queue with a fresh attempt
// budget.
func (h *SyncHandler) RetryHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(apperrors.ValidationFailed("invalid_task_id", "Task ID must be numeric"))
		return
	}
	if err := h.tasks.RetryFailed(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	if h.notifier != nil {
		h.notifier.Poke()
	}
	c.JSON(http.StatusOK, gin.H{"status": "queued"})
}

// ClearCompletedHandler prunes completed task rows.
func (h *SyncHandler) ClearCompletedHandler(c *gin.Context) {
	removed, err := h.tasks.ClearCompleted(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
