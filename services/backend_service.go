// Package services provides the infrastructure services: the cloud backend
// client, the sync drain worker, heatmap aggregation, media storage, emails,
// and weather.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/BirdScout/bird-scout-backend/errors"
	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/types"
	"go.uber.org/zap"
)

var _ types.RemoteBackend = (*BackendService)(nil)

// BackendService talks to the Supabase REST endpoint that fronts the shared
// document collections (tours, tour_participants, user_roles, sightings).
// Writes use merge-duplicates upserts; "last writer wins" applies on the
// participant and tour documents.
type BackendService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// BackendServiceConfig contains connection settings for the cloud backend.
type BackendServiceConfig struct {
	SupabaseURL string
	SupabaseKey string
	Timeout     time.Duration
}

// NewBackendService creates a backend client.
func NewBackendService(cfg BackendServiceConfig) *BackendService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BackendService{
		baseURL:    cfg.SupabaseURL,
		apiKey:     cfg.SupabaseKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.GetLogger().Named("backend"),
	}
}

type remoteTour struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	GuideID     string  `json:"guide_id"`
	Status      string  `json:"status"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	MeetingName string  `json:"meeting_name"`
	MeetingLat  float64 `json:"meeting_lat"`
	MeetingLon  float64 `json:"meeting_lon"`
	Capacity    *int    `json:"capacity"`
	RouteID     string  `json:"route_id"`
}

type remoteParticipant struct {
	ID          string  `json:"id"`
	TourID      string  `json:"tour_id"`
	UserID      string  `json:"user_id"`
	Status      string  `json:"status"`
	UserName    string  `json:"user_name"`
	UserEmail   string  `json:"user_email"`
	UserPhone   string  `json:"user_phone"`
	RequestedAt string  `json:"requested_at"`
	ProcessedAt *string `json:"processed_at"`
}

type remoteUserRole struct {
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

func (s *BackendService) UpsertTour(ctx context.Context, tour *types.Tour) error {
	doc := remoteTour{
		ID:          tour.ID,
		Title:       tour.Title,
		Description: tour.Description,
		GuideID:     tour.GuideID,
		Status:      string(tour.Status),
		StartTime:   tour.StartTime.UTC().Format(time.RFC3339),
		EndTime:     tour.EndTime.UTC().Format(time.RFC3339),
		MeetingName: tour.MeetingPoint.Name,
		MeetingLat:  tour.MeetingPoint.Latitude,
		MeetingLon:  tour.MeetingPoint.Longitude,
		Capacity:    tour.Capacity,
		RouteID:     tour.RouteID,
	}
	return s.upsert(ctx, "tours", doc)
}

func (s *BackendService) GetTour(ctx context.Context, id string) (*types.Tour, error) {
	var docs []remoteTour
	query := fmt.Sprintf("tours?id=eq.%s&limit=1", url.QueryEscape(id))
	if err := s.get(ctx, query, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperrors.NotFound("Tour", id)
	}
	return decodeRemoteTour(&docs[0])
}

func (s *BackendService) UpsertParticipant(ctx context.Context, p *types.TourParticipant) error {
	doc := remoteParticipant{
		ID:          p.ID,
		TourID:      p.TourID,
		UserID:      p.UserID,
		Status:      string(p.Status),
		UserName:    p.UserName,
		UserEmail:   p.UserEmail,
		UserPhone:   p.UserPhone,
		RequestedAt: p.RequestedAt.UTC().Format(time.RFC3339),
	}
	if p.ProcessedAt != nil {
		ts := p.ProcessedAt.UTC().Format(time.RFC3339)
		doc.ProcessedAt = &ts
	}
	return s.upsert(ctx, "tour_participants", doc)
}

func (s *BackendService) UpdateParticipantStatus(ctx context.Context, tourID, userID string, status types.ParticipantStatus, processedAt time.Time) error {
	patch := map[string]any{
		"status":       string(status),
		"processed_at": processedAt.UTC().Format(time.RFC3339),
	}
	query := fmt.Sprintf("tour_participants?tour_id=eq.%s&user_id=eq.%s",
		url.QueryEscape(tourID), url.QueryEscape(userID))
	return s.patch(ctx, query, patch)
}

func (s *BackendService) ListParticipants(ctx context.Context, tourID string) ([]*types.TourParticipant, error) {
	var docs []remoteParticipant
	query := fmt.Sprintf("tour_participants?tour_id=eq.%s&order=requested_at.asc", url.QueryEscape(tourID))
	if err := s.get(ctx, query, &docs); err != nil {
		return nil, err
	}
	out := make([]*types.TourParticipant, 0, len(docs))
	for i := range docs {
		p, err := decodeRemoteParticipant(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *BackendService) EnsureUserRole(ctx context.Context, externalID, email string) (types.UserRole, error) {
	role, err := s.FetchUserRole(ctx, externalID)
	if err == nil {
		return role, nil
	}
	if !apperrors.IsType(err, apperrors.NotFoundError) {
		return "", err
	}
	// First sign-in for this identity: create the role document.
	doc := remoteUserRole{ExternalID: externalID, Email: email, Role: string(types.UserRoleUser)}
	if err := s.upsert(ctx, "user_roles", doc); err != nil {
		return "", err
	}
	return types.UserRoleUser, nil
}

func (s *BackendService) FetchUserRole(ctx context.Context, externalID string) (types.UserRole, error) {
	var docs []remoteUserRole
	query := fmt.Sprintf("user_roles?external_id=eq.%s&limit=1", url.QueryEscape(externalID))
	if err := s.get(ctx, query, &docs); err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", apperrors.NotFound("User role", externalID)
	}
	role := types.UserRole(docs[0].Role)
	if !role.IsValid() {
		return "", apperrors.New(apperrors.ValidationError, "Unknown role in backend document", docs[0].Role)
	}
	return role, nil
}

func (s *BackendService) PushUserRole(ctx context.Context, externalID string, role types.UserRole) error {
	query := fmt.Sprintf("user_roles?external_id=eq.%s", url.QueryEscape(externalID))
	return s.patch(ctx, query, map[string]any{"role": string(role)})
}

func (s *BackendService) ReportSighting(ctx context.Context, sighting *types.Sighting) error {
	doc := map[string]any{
		"id":          sighting.ID,
		"user_id":     sighting.UserID,
		"species_id":  sighting.SpeciesID,
		"latitude":    sighting.Latitude,
		"longitude":   sighting.Longitude,
		"note":        sighting.Note,
		"observed_at": sighting.ObservedAt.UTC().Format(time.RFC3339),
	}
	return s.upsert(ctx, "sightings", doc)
}

// upsert POSTs a document with merge-duplicates semantics.
func (s *BackendService) upsert(ctx context.Context, table string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", table, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/rest/v1/%s", s.baseURL, table), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	return s.do(req)
}

func (s *BackendService) patch(ctx context.Context, query string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal patch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/rest/v1/%s", s.baseURL, query), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")
	return s.do(req)
}

func (s *BackendService) get(ctx context.Context, query string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/rest/v1/%s", s.baseURL, query), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.RemoteWriteFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apperrors.RemoteWriteFailed(fmt.Errorf("backend returned status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.RemoteWriteFailed(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}

func (s *BackendService) do(req *http.Request) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warnw("Backend request failed", "method", req.Method, "url", req.URL.Path, "error", err)
		return apperrors.RemoteWriteFailed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warnw("Backend rejected request", "method", req.Method, "url", req.URL.Path, "status", resp.StatusCode)
		return apperrors.RemoteWriteFailed(fmt.Errorf("backend returned status %d", resp.StatusCode))
	}
	return nil
}

func (s *BackendService) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func decodeRemoteTour(doc *remoteTour) (*types.Tour, error) {
	start, err := time.Parse(time.RFC3339, doc.StartTime)
	if err != nil {
		return nil, fmt.Errorf("bad start_time in tour %s: %w", doc.ID, err)
	}
	end, err := time.Parse(time.RFC3339, doc.EndTime)
	if err != nil {
		return nil, fmt.Errorf("bad end_time in tour %s: %w", doc.ID, err)
	}
	return &types.Tour{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		GuideID:     doc.GuideID,
		Status:      types.TourStatus(doc.Status),
		StartTime:   start,
		EndTime:     end,
		MeetingPoint: types.MeetingPoint{
			Name:      doc.MeetingName,
			Latitude:  doc.MeetingLat,
			Longitude: doc.MeetingLon,
		},
		Capacity: doc.Capacity,
		RouteID:  doc.RouteID,
	}, nil
}

func decodeRemoteParticipant(doc *remoteParticipant) (*types.TourParticipant, error) {
	requested, err := time.Parse(time.RFC3339, doc.RequestedAt)
	if err != nil {
		return nil, fmt.Errorf("bad requested_at in participant %s: %w", doc.ID, err)
	}
	p := &types.TourParticipant{
		ID:          doc.ID,
		TourID:      doc.TourID,
		UserID:      doc.UserID,
		Status:      types.ParticipantStatus(doc.Status),
		UserName:    doc.UserName,
		UserEmail:   doc.UserEmail,
		UserPhone:   doc.UserPhone,
		RequestedAt: requested,
	}
	if doc.ProcessedAt != nil {
		processed, err := time.Parse(time.RFC3339, *doc.ProcessedAt)
		if err != nil {
			return nil, fmt.Errorf("bad processed_at in participant %s: %w", doc.ID, err)
		}
		p.ProcessedAt = &processed
	}
	return p, nil
}
