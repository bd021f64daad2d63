package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/taxi-dispatch/internal/models"
)

// RedisLocations keeps the single current LocationSample per user in a
// Redis hash, plus a GEO set for drivers so operational tooling can query
// who is where.
type RedisLocations struct {
	client *redis.Client
	geoKey string
}

func NewRedisLocations(addr, password, geoKey string) *RedisLocations {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisLocations{client: c, geoKey: geoKey}
}

// NewRedisLocationsWithClient wraps an existing client (used by the
// consumer binary which owns its own connection).
func NewRedisLocationsWithClient(c *redis.Client, geoKey string) *RedisLocations {
	return &RedisLocations{client: c, geoKey: geoKey}
}

func (r *RedisLocations) Upsert(ctx context.Context, s models.LocationSample) error {
	if s.Updated.IsZero() {
		s.Updated = time.Now()
	}
	if err := r.client.HSet(ctx, locKey(s.UserID), map[string]interface{}{
		"lat":     strconv.FormatFloat(s.Loc.Lat, 'f', -1, 64),
		"lon":     strconv.FormatFloat(s.Loc.Lon, 'f', -1, 64),
		"role":    s.Role,
		"updated": s.Updated.Format(time.RFC3339),
	}).Err(); err != nil {
		return err
	}
	if s.Role == "driver" {
		return r.client.GeoAdd(ctx, r.geoKey, &redis.GeoLocation{
			Longitude: s.Loc.Lon, Latitude: s.Loc.Lat, Name: s.UserID,
		}).Err()
	}
	return nil
}

func (r *RedisLocations) Latest(ctx context.Context, userID string) (models.LocationSample, bool, error) {
	m, err := r.client.HGetAll(ctx, locKey(userID)).Result()
	if err != nil {
		return models.LocationSample{}, false, err
	}
	if len(m) == 0 {
		return models.LocationSample{}, false, nil
	}
	s := models.LocationSample{UserID: userID, Role: m["role"]}
	if v, ok := m["lat"]; ok {
		s.Loc.Lat, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["lon"]; ok {
		s.Loc.Lon, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["updated"]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			s.Updated = t
		}
	}
	return s, true, nil
}

func locKey(userID string) string { return "location:current:" + userID }
