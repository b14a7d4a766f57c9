package types

import "time"

// WeatherInfo is the current forecast for a tour's meeting point.
type WeatherInfo struct {
	TourID              string    `json:"tourId"`
	Temperature2m       float64   `json:"temperature_2m"`
	ApparentTemperature float64   `json:"apparent_temperature"`
	WindSpeed10m        float64   `json:"wind_speed_10m"`
	Precipitation       float64   `json:"precipitation"`
	WeatherCode         int       `json:"weather_code"`
	IsDay               bool      `json:"is_day"`
	Timestamp           time.Time `json:"timestamp"`
}
