package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentForMeetingPoint(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"current": {
				"time": "2026-05-10T06:00",
				"temperature_2m": 11.4,
				"apparent_temperature": 9.8,
				"wind_speed_10m": 14.2,
				"precipitation": 0.3,
				"weather_code": 61,
				"is_day": 1
			}
		}`))
	}))
	defer server.Close()

	svc := NewWeatherService(server.URL)
	tour := &types.Tour{
		ID: "tour-1",
		MeetingPoint: types.MeetingPoint{
			Name:      "Reservoir gate",
			Latitude:  51.4786,
			Longitude: -0.1657,
		},
	}

	info, err := svc.CurrentForMeetingPoint(context.Background(), tour)
	require.NoError(t, err)
	assert.Equal(t, "tour-1", info.TourID)
	assert.InDelta(t, 11.4, info.Temperature2m, 1e-9)
	assert.InDelta(t, 0.3, info.Precipitation, 1e-9)
	assert.Equal(t, 61, info.WeatherCode)
	assert.True(t, info.IsDay)

	assert.Contains(t, gotQuery, "latitude=51.478600")
	assert.Contains(t, gotQuery, "longitude=-0.165700")
	assert.Contains(t, gotQuery, "weather_code")
}

func TestCurrentForMeetingPointUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	svc := NewWeatherService(server.URL)
	_, err := svc.CurrentForMeetingPoint(context.Background(), &types.Tour{ID: "tour-1"})
	assert.Error(t, err)
}

func TestNewWeatherServiceDefaultBaseURL(t *testing.T) {
	svc := NewWeatherService("")
	assert.Equal(t, defaultWeatherBaseURL, svc.baseURL)
}
