package plan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPoints = []Coordinate{
	{Lat: 48.8566, Lon: 2.3522},
	{Lat: 48.86, Lon: 2.34},
	{Lat: 48.85, Lon: 2.36},
}

func TestRouteWithoutRouterFallsBack(t *testing.T) {
	svc := NewRouterService("", "marcheroute/0.0.1")
	route := svc.Route(context.Background(), testPoints)

	require.NotNil(t, route)
	assert.Equal(t, RouteTypeFallback, route.Type)
	require.Len(t, route.Polyline, len(testPoints))
	for i, p := range testPoints {
		assert.Equal(t, p.Lat, route.Polyline[i].Lat())
		assert.Equal(t, p.Lon, route.Polyline[i].Lon())
	}
}

func TestRoutePrefersOSRM(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/route/v1/foot/")
		// waypoints go out lon-first
		assert.Contains(t, r.URL.Path, "2.352200,48.856600")
		assert.Equal(t, "geojson", r.URL.Query().Get("geometries"))
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		w.Write([]byte(`{"routes": [{"geometry": {"type": "LineString", "coordinates": [[2.3522, 48.8566], [2.34, 48.86]]}}]}`))
	}))
	defer server.Close()

	svc := NewRouterService(server.URL, "marcheroute/0.0.1")
	route := svc.Route(context.Background(), testPoints)

	require.NotNil(t, route)
	assert.Equal(t, RouteTypeOSRM, route.Type)
	assert.NotEmpty(t, route.GeoJSON)
	assert.Empty(t, route.Polyline)
}

func TestRouteFallsBackToGraphHopper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// OSRM attempt fails
			w.WriteHeader(http.StatusNotFound)
			return
		}
		assert.Equal(t, "/route", r.URL.Path)
		w.Write([]byte(`{"paths": [{"distance": 1234.5}]}`))
	}))
	defer server.Close()

	svc := NewRouterService(server.URL, "marcheroute/0.0.1")
	route := svc.Route(context.Background(), testPoints)

	require.NotNil(t, route)
	assert.Equal(t, RouteTypeGraphHopper, route.Type)
	assert.NotEmpty(t, route.Raw)
}

func TestRouteAllUpstreamsFailingFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewRouterService(server.URL, "marcheroute/0.0.1")
	route := svc.Route(context.Background(), testPoints)

	require.NotNil(t, route)
	assert.Equal(t, RouteTypeFallback, route.Type)
	assert.Len(t, route.Polyline, len(testPoints))
}
