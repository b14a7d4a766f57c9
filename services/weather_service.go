package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/types"
)

const defaultWeatherBaseURL = "https://api.open-meteo.com/v1/forecast"

// WeatherService fetches current conditions for a tour's meeting point from
// the Open-Meteo API.
type WeatherService struct {
	baseURL string
	client  *http.Client
}

func NewWeatherService(baseURL string) *WeatherService {
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	return &WeatherService{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CurrentForMeetingPoint fetches the forecast for a tour's meeting point and
// tags the result with the tour ID.
func (s *WeatherService) CurrentForMeetingPoint(ctx context.Context, tour *types.Tour) (*types.WeatherInfo, error) {
	info, err := s.getCurrentWeather(ctx, tour.MeetingPoint.Latitude, tour.MeetingPoint.Longitude)
	if err != nil {
		return nil, err
	}
	info.TourID = tour.ID
	return info, nil
}

func (s *WeatherService) getCurrentWeather(ctx context.Context, lat, lon float64) (*types.WeatherInfo, error) {
	params := url.Values{}
	params.Add("latitude", fmt.Sprintf("%f", lat))
	params.Add("longitude", fmt.Sprintf("%f", lon))
	params.Add("current", "temperature_2m,apparent_temperature,wind_speed_10m,precipitation,weather_code,is_day")

	log := logger.GetLogger()
	log.Debugw("Fetching weather data", "lat", lat, "lon", lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?%s", s.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error: %s", resp.Status)
	}

	var weatherResp struct {
		Current struct {
			Time                string  `json:"time"`
			Temperature2m       float64 `json:"temperature_2m"`
			ApparentTemperature float64 `json:"apparent_temperature"`
			WindSpeed10m        float64 `json:"wind_speed_10m"`
			Precipitation       float64 `json:"precipitation"`
			WeatherCode         int     `json:"weather_code"`
			IsDay               int     `json:"is_day"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&weatherResp); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	return &types.WeatherInfo{
		Temperature2m:       weatherResp.Current.Temperature2m,
		ApparentTemperature: weatherResp.Current.ApparentTemperature,
		WindSpeed10m:        weatherResp.Current.WindSpeed10m,
		Precipitation:       weatherResp.Current.Precipitation,
		WeatherCode:         weatherResp.Current.WeatherCode,
		IsDay:               weatherResp.Current.IsDay == 1,
		Timestamp:           time.Now().UTC(),
	}, nil
}
