package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidPoint = errors.New("invalid point")

// Point is a WGS84 coordinate stored as geography(Point, 4326).
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks coordinate ranges.
func (p Point) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", ErrInvalidPoint)
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", ErrInvalidPoint)
	}
	return nil
}

// LonLat returns the coordinate as a [lon, lat] pair.
func (p Point) LonLat() [2]float64 { return [2]float64{p.Longitude, p.Latitude} }

// UnmarshalJSON accepts {latitude, longitude}, {lat, lon}, {x, y} or a [lon, lat] array.
func (p *Point) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("%w: expected [longitude, latitude]", ErrInvalidPoint)
		}
		*p = Point{Longitude: pair[0], Latitude: pair[1]}
		return p.Validate()
	}
	var raw map[string]*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	lat, lon := pick(raw, "latitude", "lat", "y"), pick(raw, "longitude", "lon", "x")
	if lat == nil || lon == nil {
		return fmt.Errorf("%w: latitude and longitude are required", ErrInvalidPoint)
	}
	*p = Point{Latitude: *lat, Longitude: *lon}
	return p.Validate()
}

func pick(m map[string]*float64, keys ...string) *float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
