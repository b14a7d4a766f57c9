package handlers

import (
	"net/http"

	"github.com/BirdScout/bird-scout-backend/models/tour"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/gin-gonic/gin"
)

// ParticipantHandler handles join requests and guide decisions.
type ParticipantHandler struct {
	coordinator *tour.Coordinator
}

func NewParticipantHandler(coordinator *tour.Coordinator) *ParticipantHandler {
	return &ParticipantHandler{coordinator: coordinator}
}

// RequestJoinHandler files a join request on a published tour.
func (h *ParticipantHandler) RequestJoinHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	participant, err := h.coordinator.RequestJoin(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, participant)
}

// CancelJoinHandler withdraws the caller's own request.
func (h *ParticipantHandler) CancelJoinHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.coordinator.CancelRequest(c.Request.Context(), userID, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// DecideRequest is the body for a guide decision.
type DecideRequest struct {
	Status string `json:"status" binding:"required"`
}

// DecideJoinHandler approves or declines a request on the guide's tour.
func (h *ParticipantHandler) DecideJoinHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req DecideRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	participant, err := h.coordinator.UpdateParticipantStatus(
		c.Request.Context(), userID, c.Param("id"), c.Param("userId"), types.ParticipantStatus(req.Status))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, participant)
}

// ListParticipantsHandler lists all requests on a tour (guide only).
func (h *ParticipantHandler) ListParticipantsHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	participants, err := h.coordinator.ListParticipants(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// ListMyRequestsHandler lists the caller's requests across tours.
func (h *ParticipantHandler) ListMyRequestsHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	requests, err := h.coordinator.ListMyRequests(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
