package geo

import (
	"fmt"
	"math"

	"github.com/example/taxi-dispatch/internal/models"
)

const earthRadiusKm = 6371.0

// DefaultSpeedKmh is the coarse city average used for ETA banding and
// display. Never used for billing.
const DefaultSpeedKmh = 30.0

// DistanceKm returns the great-circle distance between two points in
// kilometers using the Haversine formula.
func DistanceKm(a, b models.Coord) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// BearingDegrees returns the initial bearing from a to b in degrees,
// normalized to [0, 360).
func BearingDegrees(a, b models.Coord) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// EtaMinutes is a linear travel-time estimate. It ignores the road network;
// speedKmh <= 0 falls back to DefaultSpeedKmh.
func EtaMinutes(distanceKm, speedKmh float64) float64 {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return distanceKm / speedKmh * 60
}

// FormatDistance renders a distance for display: meters under 1 km.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%.0f m", km*1000)
	}
	return fmt.Sprintf("%.1f km", km)
}

// FormatTime renders a minute count for display.
func FormatTime(minutes float64) string {
	if minutes < 1 {
		return "less than a minute"
	}
	if minutes < 60 {
		return fmt.Sprintf("%.0f min", minutes)
	}
	h := int(minutes) / 60
	m := int(minutes) % 60
	if m == 0 {
		return fmt.Sprintf("%d hr", h)
	}
	return fmt.Sprintf("%d hr %d min", h, m)
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
