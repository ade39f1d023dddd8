package domain

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean earth radius.
const EarthRadiusMeters = 6371000.0

// Position is a reference point. Accuracy is only set for GPS fixes.
type Position struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

func NewPosition(lat, lng float64) Position {
	return Position{Lat: lat, Lng: lng}
}

// NewFix builds a GPS position with its accuracy radius in meters.
func NewFix(lat, lng, accuracy float64) Position {
	return Position{Lat: lat, Lng: lng, Accuracy: &accuracy}
}

// DistanceTo returns the great-circle distance in meters.
func (p Position) DistanceTo(o Position) float64 {
	a := s2.LatLngFromDegrees(p.Lat, p.Lng)
	b := s2.LatLngFromDegrees(o.Lat, o.Lng)
	return a.Distance(b).Radians() * EarthRadiusMeters
}
