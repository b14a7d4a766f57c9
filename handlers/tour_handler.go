package handlers

import (
	"net/http"
	"time"

	tourservice "github.com/BirdScout/bird-scout-backend/models/tour/service"
	"github.com/BirdScout/bird-scout-backend/services"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/gin-gonic/gin"
)

// TourHandler handles tour CRUD and lifecycle endpoints.
type TourHandler struct {
	tours   *tourservice.TourManagementService
	weather *services.WeatherService
}

func NewTourHandler(tours *tourservice.TourManagementService, weather *services.WeatherService) *TourHandler {
	return &TourHandler{tours: tours, weather: weather}
}

// CreateTourRequest is the body for creating a tour.
type CreateTourRequest struct {
	Title            string    `json:"title" binding:"required"`
	Description      string    `json:"description,omitempty"`
	StartTime        time.Time `json:"startTime" binding:"required"`
	EndTime          time.Time `json:"endTime" binding:"required"`
	MeetingPointName string    `json:"meetingPointName" binding:"required"`
	MeetingLatitude  float64   `json:"meetingLatitude" binding:"required"`
	MeetingLongitude float64   `json:"meetingLongitude" binding:"required"`
	Capacity         *int      `json:"capacity,omitempty"`
	RouteID          string    `json:"routeId,omitempty"`
}

func (h *TourHandler) CreateTourHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req CreateTourRequest
	if !bindJSONOrError(c, &req) {
		return
	}

	tour := &types.Tour{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MeetingPoint: types.MeetingPoint{
			Name:      req.MeetingPointName,
			Latitude:  req.MeetingLatitude,
			Longitude: req.MeetingLongitude,
		},
		Capacity: req.Capacity,
		RouteID:  req.RouteID,
	}

	created, err := h.tours.CreateTour(c.Request.Context(), userID, tour)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *TourHandler) GetTourHandler(c *gin.Context) {
	tour, err := h.tours.GetTour(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

func (h *TourHandler) UpdateTourHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var update types.TourUpdate
	if !bindJSONOrError(c, &update) {
		return
	}
	tour, err := h.tours.UpdateTour(c.Request.Context(), userID, c.Param("id"), &update)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

// UpdateTourStatusRequest is the body for lifecycle changes.
type UpdateTourStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TourHandler) UpdateTourStatusHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req UpdateTourStatusRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	tour, err := h.tours.UpdateTourStatus(c.Request.Context(), userID, c.Param("id"), types.TourStatus(req.Status))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

func (h *TourHandler) ListOpenToursHandler(c *gin.Context) {
	tours, err := h.tours.ListOpenTours(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tours": tours})
}

func (h *TourHandler) ListMyToursHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	tours, err := h.tours.ListToursByGuide(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tours": tours})
}

func (h *TourHandler) DeleteTourHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.tours.DeleteTour(c.Request.Context(), userID, c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TourWeatherHandler returns current conditions at the meeting point.
func (h *TourHandler) TourWeatherHandler(c *gin.Context) {
	tour, err := h.tours.GetTour(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	weather, err := h.weather.CurrentForMeetingPoint(c.Request.Context(), tour)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, weather)
}
