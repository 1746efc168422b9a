package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"homeservices/internal/domain"
)

const providerLocationKey = "providers:locations"

// Redis GEO measures distance on a sphere of this radius, larger than domain.EarthRadiusMeters.
const redisEarthRadiusMeters = 6372797.560856

// geohashSlackMeters covers the 52-bit geohash quantization of stored points.
const geohashSlackMeters = 1.0

// ErrLocationNotFound is returned when a provider has no indexed location.
var ErrLocationNotFound = errors.New("provider location not found")

// ProviderLocation is a provider's indexed position.
type ProviderLocation struct {
	ProviderID string
	Point      domain.Point
}

// LocationStore is the provider location index backed by a Redis GEO set.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a provider's location. GEOADD replaces the whole point in one command.
func (s *LocationStore) UpdateLocation(ctx context.Context, providerID string, point domain.Point) error {
	return s.client.GeoAdd(ctx, providerLocationKey, &redis.GeoLocation{
		Name:      providerID,
		Longitude: point.Lng,
		Latitude:  point.Lat,
	}).Err()
}

// FindNearby returns providers within radiusMeters of origin, nearest first.
// The radius is measured with domain.EarthRadiusMeters. The index query is widened to
// that metric, so results may include points slightly outside and callers re-bound them.
func (s *LocationStore) FindNearby(ctx context.Context, origin domain.Point, radiusMeters float64) ([]ProviderLocation, error) {
	results, err := s.client.GeoSearchLocation(ctx, providerLocationKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  origin.Lng,
			Latitude:   origin.Lat,
			Radius:     indexRadius(radiusMeters),
			RadiusUnit: "m",
			Sort:       "ASC",
		},
		WithCoord: true,
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]ProviderLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, ProviderLocation{
			ProviderID: r.Name,
			Point:      domain.Point{Lng: r.Longitude, Lat: r.Latitude},
		})
	}

	return locations, nil
}

// indexRadius converts a radius in the system metric to the index metric.
func indexRadius(radiusMeters float64) float64 {
	return radiusMeters*redisEarthRadiusMeters/domain.EarthRadiusMeters + geohashSlackMeters
}

// GetLocation returns the indexed location of a provider.
func (s *LocationStore) GetLocation(ctx context.Context, providerID string) (domain.Point, error) {
	positions, err := s.client.GeoPos(ctx, providerLocationKey, providerID).Result()
	if err != nil {
		return domain.Point{}, err
	}
	if len(positions) == 0 || positions[0] == nil {
		return domain.Point{}, ErrLocationNotFound
	}
	return domain.Point{Lng: positions[0].Longitude, Lat: positions[0].Latitude}, nil
}

// GetLocations returns the indexed locations of the given providers. Providers without a location are omitted.
func (s *LocationStore) GetLocations(ctx context.Context, providerIDs []string) (map[string]domain.Point, error) {
	result := make(map[string]domain.Point, len(providerIDs))
	if len(providerIDs) == 0 {
		return result, nil
	}

	positions, err := s.client.GeoPos(ctx, providerLocationKey, providerIDs...).Result()
	if err != nil {
		return nil, err
	}

	for i, pos := range positions {
		if pos == nil || i >= len(providerIDs) {
			continue
		}
		result[providerIDs[i]] = domain.Point{Lng: pos.Longitude, Lat: pos.Latitude}
	}
	return result, nil
}

// RemoveLocation removes a provider's location from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, providerID string) error {
	return s.client.ZRem(ctx, providerLocationKey, providerID).Err()
}
