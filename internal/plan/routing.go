package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/marcheroute/marcheroute/pkg/httpclient"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/resilience"
	"go.uber.org/zap"
)

// RouterService connects waypoints into a walking route. It speaks the OSRM
// API first and a GraphHopper-style API second; with no router configured or
// both upstreams failing it degrades to the straight-line polyline of the
// waypoints.
type RouterService struct {
	client  *httpclient.Client
	enabled bool
	breaker *resilience.CircuitBreaker
}

// NewRouterService creates a router client. An empty baseURL disables the
// upstream and every route comes back as a fallback polyline.
func NewRouterService(baseURL, userAgent string) *RouterService {
	s := &RouterService{enabled: baseURL != ""}
	if s.enabled {
		s.client = httpclient.New(baseURL,
			httpclient.WithTimeout(routerTimeout),
			httpclient.WithUserAgent(userAgent),
		)
	}
	return s
}

// SetCircuitBreaker attaches a breaker to the upstream calls.
func (s *RouterService) SetCircuitBreaker(breaker *resilience.CircuitBreaker) {
	s.breaker = breaker
}

type osrmResponse struct {
	Routes []struct {
		Geometry json.RawMessage `json:"geometry"`
	} `json:"routes"`
}

// Route connects the waypoints in order.
func (s *RouterService) Route(ctx context.Context, points []Coordinate) *Route {
	if !s.enabled {
		return fallbackRoute(points)
	}

	result, err := s.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		if route := s.tryOSRM(ctx, points); route != nil {
			return route, nil
		}
		if route := s.tryGraphHopper(ctx, points); route != nil {
			return route, nil
		}
		return nil, fmt.Errorf("no routing upstream produced a route")
	})
	if err != nil {
		logger.WarnContext(ctx, "Routing upstreams failed, using straight-line polyline", zap.Error(err))
		return fallbackRoute(points)
	}

	return result.(*Route)
}

func (s *RouterService) tryOSRM(ctx context.Context, points []Coordinate) *Route {
	// OSRM wants lon,lat;lon,lat;...
	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%f,%f", p.Lon, p.Lat)
	}

	query := url.Values{}
	query.Set("geometries", "geojson")
	query.Set("overview", "full")

	body, err := s.client.GetWithQuery(ctx, "/route/v1/foot/"+strings.Join(coords, ";"), query)
	if err != nil {
		logger.DebugContext(ctx, "OSRM routing attempt failed", zap.Error(err))
		return nil
	}

	var resp osrmResponse
	if err := decodeJSON(body, &resp); err != nil || len(resp.Routes) == 0 {
		return nil
	}

	return &Route{Type: RouteTypeOSRM, GeoJSON: resp.Routes[0].Geometry}
}

func (s *RouterService) tryGraphHopper(ctx context.Context, points []Coordinate) *Route {
	type ghPoint struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}

	ghPoints := make([]ghPoint, len(points))
	for i, p := range points {
		ghPoints[i] = ghPoint{Lat: p.Lat, Lng: p.Lon}
	}

	body, err := s.client.PostJSON(ctx, "/route", map[string]interface{}{"points": ghPoints})
	if err != nil {
		logger.DebugContext(ctx, "GraphHopper routing attempt failed", zap.Error(err))
		return nil
	}

	return &Route{Type: RouteTypeGraphHopper, Raw: body}
}

func fallbackRoute(points []Coordinate) *Route {
	polyline := make([]LatLon, len(points))
	for i, p := range points {
		polyline[i] = LatLon{p.Lat, p.Lon}
	}
	return &Route{Type: RouteTypeFallback, Polyline: polyline}
}
