package domain

import "math"

// MetersPerDegree is the equirectangular approximation of one degree of latitude.
const MetersPerDegree = 111000.0

// GeoWindow is a bounding rectangle in degrees.
type GeoWindow struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// ComputeWindow derives the box around center covering radiusMeters.
// Inputs are not validated; longitude span grows without bound near the poles.
func ComputeWindow(center Position, radiusMeters float64) GeoWindow {
	deltaLat := radiusMeters / MetersPerDegree
	deltaLng := radiusMeters / (MetersPerDegree * math.Cos(center.Lat*math.Pi/180))

	return GeoWindow{
		MinLat: center.Lat - deltaLat,
		MaxLat: center.Lat + deltaLat,
		MinLng: center.Lng - deltaLng,
		MaxLng: center.Lng + deltaLng,
	}
}

// Contains reports whether the point lies inside the window, bounds inclusive.
func (w GeoWindow) Contains(lat, lng float64) bool {
	return lat >= w.MinLat && lat <= w.MaxLat && lng >= w.MinLng && lng <= w.MaxLng
}
