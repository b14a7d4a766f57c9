package types

import "time"

// Sighting is a GPS-tagged species observation.
type Sighting struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	SpeciesID  string    `json:"speciesId"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Note       string    `json:"note,omitempty"`
	ObservedAt time.Time `json:"observedAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HeatmapCell is one aggregation bucket of sighting density.
type HeatmapCell struct {
	GeohashCell string  `json:"cell"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Count       int64   `json:"count"`
}

// BoundingBox delimits a map viewport for heatmap queries.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}
