package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BirdScout/bird-scout-backend/logger"
	"github.com/BirdScout/bird-scout-backend/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	heatmapGeoKey   = "heatmap:geo"
	heatmapCountKey = "heatmap:counts"

	// cellPrecision buckets coordinates to ~1.1km cells.
	cellPrecision = 100.0

	maxHeatmapCells = 500
)

// HeatmapService aggregates sighting density into Redis. Each sighting
// increments the counter of its grid cell; viewport queries return the cells
// inside a bounding box with their counts.
type HeatmapService struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

func NewHeatmapService(client *redis.Client) *HeatmapService {
	return &HeatmapService{
		client: client,
		logger: logger.GetLogger().Named("heatmap"),
	}
}

// cellKey snaps a coordinate to its grid cell identifier.
func cellKey(lat, lon float64) string {
	cellLat := math.Floor(lat*cellPrecision) / cellPrecision
	cellLon := math.Floor(lon*cellPrecision) / cellPrecision
	return fmt.Sprintf("%.2f:%.2f", cellLat, cellLon)
}

func cellCenter(key string) (float64, float64, error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed cell key %q", key)
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, err
	}
	half := 1.0 / (2 * cellPrecision)
	return lat + half, lon + half, nil
}

// Record registers one sighting at the given coordinate.
func (s *HeatmapService) Record(ctx context.Context, lat, lon float64) error {
	key := cellKey(lat, lon)

	pipe := s.client.TxPipeline()
	pipe.GeoAdd(ctx, heatmapGeoKey, &redis.GeoLocation{
		Name:      key,
		Latitude:  lat,
		Longitude: lon,
	})
	pipe.ZIncrBy(ctx, heatmapCountKey, 1, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record heatmap point: %w", err)
	}
	return nil
}

// Query returns the sighting density cells inside the viewport.
func (s *HeatmapService) Query(ctx context.Context, box types.BoundingBox) ([]*types.HeatmapCell, error) {
	centerLat := (box.MinLat + box.MaxLat) / 2
	centerLon := (box.MinLon + box.MaxLon) / 2
	heightKm := haversineKm(box.MinLat, centerLon, box.MaxLat, centerLon)
	widthKm := haversineKm(centerLat, box.MinLon, centerLat, box.MaxLon)

	members, err := s.client.GeoSearch(ctx, heatmapGeoKey, &redis.GeoSearchQuery{
		Latitude:  centerLat,
		Longitude: centerLon,
		BoxWidth:  widthKm,
		BoxHeight: heightKm,
		BoxUnit:   "km",
		Count:     maxHeatmapCells,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("heatmap search failed: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	counts, err := s.client.ZMScore(ctx, heatmapCountKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("heatmap count lookup failed: %w", err)
	}

	cells := make([]*types.HeatmapCell, 0, len(members))
	for i, member := range members {
		lat, lon, err := cellCenter(member)
		if err != nil {
			s.logger.Warnw("Skipping malformed heatmap cell", "member", member, "error", err)
			continue
		}
		cells = append(cells, &types.HeatmapCell{
			GeohashCell: member,
			Latitude:    lat,
			Longitude:   lon,
			Count:       int64(counts[i]),
		})
	}
	return cells, nil
}

// Healthcheck verifies the Redis connection.
func (s *HeatmapService) Healthcheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
