package overlay

import (
	"fmt"

	"github.com/marcheroute/marcheroute/internal/plan"
	"github.com/marcheroute/marcheroute/pkg/validation"
)

// Position is a GeoJSON [longitude, latitude] position.
type Position [2]float64

// Geometry is a GeoJSON geometry object.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates []Position `json:"coordinates"`
}

// Feature is a GeoJSON feature object.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// BBox is a geographic extent in [west, south, east, north] order, the shape
// map cameras fit to.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// LineString builds a GeoJSON LineString feature from an ordered [lat, lon]
// polyline. Each input pair becomes one [lon, lat] position; the output has
// exactly as many positions as the input has pairs.
func LineString(polyline []plan.LatLon) (*Feature, error) {
	if len(polyline) < 2 {
		return nil, fmt.Errorf("polyline needs at least 2 points, got %d", len(polyline))
	}

	coordinates := make([]Position, len(polyline))
	for i, pair := range polyline {
		if err := validation.CheckCoordinate(pair.Lat(), pair.Lon()); err != nil {
			return nil, fmt.Errorf("polyline point %d: %w", i, err)
		}
		coordinates[i] = Position{pair.Lon(), pair.Lat()}
	}

	return &Feature{
		Type: "Feature",
		Geometry: Geometry{
			Type:        "LineString",
			Coordinates: coordinates,
		},
		Properties: map[string]interface{}{},
	}, nil
}

// Bounds computes the extent covering every point of the polyline.
func Bounds(polyline []plan.LatLon) (BBox, error) {
	if len(polyline) == 0 {
		return BBox{}, fmt.Errorf("polyline is empty")
	}

	bbox := BBox{
		West:  polyline[0].Lon(),
		South: polyline[0].Lat(),
		East:  polyline[0].Lon(),
		North: polyline[0].Lat(),
	}

	for _, pair := range polyline[1:] {
		if pair.Lon() < bbox.West {
			bbox.West = pair.Lon()
		}
		if pair.Lon() > bbox.East {
			bbox.East = pair.Lon()
		}
		if pair.Lat() < bbox.South {
			bbox.South = pair.Lat()
		}
		if pair.Lat() > bbox.North {
			bbox.North = pair.Lat()
		}
	}

	return bbox, nil
}
