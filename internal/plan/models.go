package plan

import (
	"encoding/json"
	"fmt"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LatLon is a [latitude, longitude] pair as it appears on the wire.
// Decoding fails unless the value is exactly two numbers.
type LatLon [2]float64

// Lat returns the latitude component.
func (p LatLon) Lat() float64 { return p[0] }

// Lon returns the longitude component.
func (p LatLon) Lon() float64 { return p[1] }

func (p *LatLon) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid coordinate pair: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("invalid coordinate pair: expected 2 values, got %d", len(raw))
	}
	p[0], p[1] = raw[0], raw[1]
	return nil
}

// POI is a point of interest selected as a stop on the walk.
type POI struct {
	ID   int64             `json:"id"`
	Type string            `json:"type"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
	Name string            `json:"name"`
}

// Route describes how the stops are connected. Exactly one of the payload
// fields is set depending on Type.
type Route struct {
	// Type is one of "osrm", "graphhopper" or "fallback".
	Type string `json:"type"`
	// Polyline carries the [lat, lon] sequence for fallback routes.
	Polyline []LatLon `json:"polyline,omitempty" validate:"omitempty,dive,latlon_pair"`
	// GeoJSON carries the LineString geometry returned by OSRM-style routers.
	GeoJSON json.RawMessage `json:"geojson,omitempty"`
	// Raw carries the untranslated response of GraphHopper-style routers.
	Raw json.RawMessage `json:"json,omitempty"`
}

const (
	RouteTypeOSRM        = "osrm"
	RouteTypeGraphHopper = "graphhopper"
	RouteTypeFallback    = "fallback"
)

// Plan is the computed walking plan for a city.
type Plan struct {
	City   string     `json:"city"`
	Center Coordinate `json:"center"`
	Stops  []POI      `json:"stops"`
	Route  *Route     `json:"route"`
}

// HasPolyline reports whether the plan carries a drawable polyline.
func (p *Plan) HasPolyline() bool {
	return p != nil && p.Route != nil && len(p.Route.Polyline) > 0
}

// Request is the plan computation input.
type Request struct {
	City            string `json:"city" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	Preferences     string `json:"preferences"`
}

// DefaultDurationMinutes is applied when the caller leaves the duration out.
const DefaultDurationMinutes = 120

// MaxStops caps how many points of interest make it into a plan.
const MaxStops = 6

// BoundingBox is the geocoder's city extent.
type BoundingBox struct {
	South float64
	North float64
	West  float64
	East  float64
}

// GeocodeResult is the resolved city location.
type GeocodeResult struct {
	Lat         float64     `json:"lat"`
	Lon         float64     `json:"lon"`
	BoundingBox BoundingBox `json:"bbox"`
}
