package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcheroute/marcheroute/pkg/cache"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"go.uber.org/zap"
)

// Per-upstream request timeouts. Overpass is the slowest of the three.
const (
	nominatimTimeout = 15 * time.Second
	overpassTimeout  = 30 * time.Second
	routerTimeout    = 20 * time.Second
)

// Geocoder resolves a city name to its location.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (*GeocodeResult, error)
}

// POIFinder lists points of interest within a city extent.
type POIFinder interface {
	Query(ctx context.Context, center Coordinate, bbox BoundingBox) []POI
}

// Router connects waypoints into a route.
type Router interface {
	Route(ctx context.Context, points []Coordinate) *Route
}

// Service computes walking plans.
type Service struct {
	geocoder Geocoder
	pois     POIFinder
	router   Router
	cache    *cache.Manager
}

// NewService wires the plan pipeline.
func NewService(geocoder Geocoder, pois POIFinder, router Router, cacheManager *cache.Manager) *Service {
	return &Service{
		geocoder: geocoder,
		pois:     pois,
		router:   router,
		cache:    cacheManager,
	}
}

// BuildPlan runs the full pipeline: geocode, pick stops, route.
func (s *Service) BuildPlan(ctx context.Context, req Request) (*Plan, error) {
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = DefaultDurationMinutes
	}

	cacheKey := ""
	if req.Preferences == "" {
		cacheKey = cache.Keys{}.Plan(req.City, req.DurationMinutes)
		var cached Plan
		if s.cache.Get(ctx, cacheKey, &cached) {
			return &cached, nil
		}
	}

	geocoded, err := s.geocoder.Geocode(ctx, req.City)
	if err != nil {
		return nil, err
	}

	center := Coordinate{Lat: geocoded.Lat, Lon: geocoded.Lon}

	pois := s.pois.Query(ctx, center, geocoded.BoundingBox)
	if len(pois) == 0 {
		// City center only, nothing to route between
		return &Plan{City: req.City, Center: center, Stops: []POI{}, Route: nil}, nil
	}

	stops := pois
	if len(stops) > MaxStops {
		stops = stops[:MaxStops]
	}

	points := make([]Coordinate, 0, len(stops)+1)
	points = append(points, center)
	for _, stop := range stops {
		points = append(points, Coordinate{Lat: stop.Lat, Lon: stop.Lon})
	}

	route := s.router.Route(ctx, points)

	result := &Plan{
		City:   req.City,
		Center: center,
		Stops:  stops,
		Route:  route,
	}

	if cacheKey != "" {
		s.cache.Set(ctx, cacheKey, result, s.cache.TTLs().Plan)
	}

	logger.InfoContext(ctx, "Plan computed",
		zap.String("city", req.City),
		zap.Int("duration_minutes", req.DurationMinutes),
		zap.Int("stops", len(stops)),
		zap.String("route_type", route.Type),
	)

	return result, nil
}

func decodeJSON(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
