package overlay

import (
	"testing"

	"github.com/marcheroute/marcheroute/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineStringReversesEveryPair(t *testing.T) {
	polyline := []plan.LatLon{
		{48.8566, 2.3522},
		{48.8606, 2.3376},
		{48.8530, 2.3499},
		{48.8462, 2.3464},
	}

	feature, err := LineString(polyline)
	require.NoError(t, err)

	assert.Equal(t, "Feature", feature.Type)
	assert.Equal(t, "LineString", feature.Geometry.Type)
	require.Len(t, feature.Geometry.Coordinates, len(polyline))

	for i, pos := range feature.Geometry.Coordinates {
		assert.Equal(t, polyline[i].Lon(), pos[0], "position %d longitude", i)
		assert.Equal(t, polyline[i].Lat(), pos[1], "position %d latitude", i)
	}
}

func TestLineStringRejectsShortPolylines(t *testing.T) {
	tests := []struct {
		name     string
		polyline []plan.LatLon
	}{
		{"empty", nil},
		{"single point", []plan.LatLon{{48.8566, 2.3522}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LineString(tt.polyline)
			assert.Error(t, err)
		})
	}
}

func TestLineStringRejectsOutOfRangePoints(t *testing.T) {
	_, err := LineString([]plan.LatLon{
		{48.8566, 2.3522},
		{91.0, 2.3376},
	})
	assert.Error(t, err)
}

func TestBounds(t *testing.T) {
	polyline := []plan.LatLon{
		{48.8566, 2.3522},
		{48.8606, 2.3376},
		{48.8462, 2.3464},
	}

	bbox, err := Bounds(polyline)
	require.NoError(t, err)

	assert.Equal(t, 2.3376, bbox.West)
	assert.Equal(t, 2.3522, bbox.East)
	assert.Equal(t, 48.8462, bbox.South)
	assert.Equal(t, 48.8606, bbox.North)
}

func TestBoundsEmptyPolyline(t *testing.T) {
	_, err := Bounds(nil)
	assert.Error(t, err)
}
