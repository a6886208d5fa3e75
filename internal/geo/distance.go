package geo

import (
	"math"

	"github.com/dishpal/coupon-core/internal/domain/entity"
)

const (
	EarthRadiusKm = 6371.0
	// KmPerDegree approximates the length of one degree of latitude.
	KmPerDegree = 111.0
	// DefaultRadiusKm is used by nearby queries when no radius is given.
	DefaultRadiusKm = 5.0
)

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// HaversineKm returns the great-circle distance between two points in kilometres.
func HaversineKm(a, b entity.Point) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// IsWithinRadius reports whether p lies within radiusKm of center.
func IsWithinRadius(center, p entity.Point, radiusKm float64) bool {
	return HaversineKm(center, p) <= radiusKm
}

// BoundingBox is a rough lat/lon rectangle around a point.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundingBoxAround returns the box that encloses the circle of radiusKm around center.
func BoundingBoxAround(center entity.Point, radiusKm float64) BoundingBox {
	dLat := radiusKm / KmPerDegree
	cos := math.Cos(toRadians(center.Latitude))
	dLon := 180.0
	if cos > 1e-9 {
		dLon = math.Min(radiusKm/(KmPerDegree*cos), 180)
	}
	return BoundingBox{
		MinLat: math.Max(center.Latitude-dLat, -90),
		MaxLat: math.Min(center.Latitude+dLat, 90),
		MinLon: math.Max(center.Longitude-dLon, -180),
		MaxLon: math.Min(center.Longitude+dLon, 180),
	}
}

// Contains reports whether p falls inside the box.
func (b BoundingBox) Contains(p entity.Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}

// RoundKm rounds a distance to two decimals for presentation.
func RoundKm(km float64) float64 { return math.Round(km*100) / 100 }
