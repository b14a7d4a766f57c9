package handlers

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	sightingservice "github.com/BirdScout/bird-scout-backend/models/sighting/service"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/gin-gonic/gin"
)

// SightingHandler handles sighting capture and heatmap reads.
type SightingHandler struct {
	sightings *sightingservice.SightingService
}

func NewSightingHandler(sightings *sightingservice.SightingService) *SightingHandler {
	return &SightingHandler{sightings: sightings}
}

// ReportSightingRequest is the body for recording a sighting.
type ReportSightingRequest struct {
	SpeciesID  string    `json:"speciesId" binding:"required"`
	Latitude   float64   `json:"latitude" binding:"required"`
	Longitude  float64   `json:"longitude" binding:"required"`
	Note       string    `json:"note,omitempty"`
	ObservedAt time.Time `json:"observedAt,omitempty"`
}

func (h *SightingHandler) ReportSightingHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req ReportSightingRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	sighting, err := h.sightings.ReportSighting(c.Request.Context(), userID, &types.Sighting{
		SpeciesID:  req.SpeciesID,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Note:       req.Note,
		ObservedAt: req.ObservedAt,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sighting)
}

func (h *SightingHandler) ListMySightingsHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sightings, err := h.sightings.ListMySightings(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sightings": sightings})
}

// AttachMediaRequest registers a locally captured file for upload.
type AttachMediaRequest struct {
	SightingID string `json:"sightingId,omitempty"`
	Kind       string `json:"kind" binding:"required"`
	LocalPath  string `json:"localPath" binding:"required"`
	StorageKey string `json:"storageKey" binding:"required"`
}

func (h *SightingHandler) AttachMediaHandler(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req AttachMediaRequest
	if !bindJSONOrError(c, &req) {
		return
	}
	record, err := h.sightings.AttachMedia(c.Request.Context(), userID, &types.MediaRecord{
		SightingID: req.SightingID,
		Kind:       req.Kind,
		LocalPath:  req.LocalPath,
	}, req.StorageKey)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// HeatmapHandler returns density cells for a map viewport given as
// min_lat/min_lon/max_lat/max_lon query parameters.
func (h *SightingHandler) HeatmapHandler(c *gin.Context) {
	box, err := parseBoundingBox(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	cells, err := h.sightings.Heatmap(c.Request.Context(), box)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cells": cells})
}

func parseBoundingBox(c *gin.Context) (types.BoundingBox, error) {
	var box types.BoundingBox
	var err error
	parse := func(name string) float64 {
		if err != nil {
			return 0
		}
		v, parseErr := strconv.ParseFloat(c.Query(name), 64)
		if parseErr != nil {
			err = apperrors.ValidationFailed("invalid_viewport", "Missing or malformed "+name)
		}
		return v
	}
	box.MinLat = parse("min_lat")
	box.MinLon = parse("min_lon")
	box.MaxLat = parse("max_lat")
	box.MaxLon = parse("max_lon")
	return box, err
}
