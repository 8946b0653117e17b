package plan

import (
	"context"
	"fmt"
	"net/url"

	"github.com/marcheroute/marcheroute/pkg/cache"
	"github.com/marcheroute/marcheroute/pkg/httpclient"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/resilience"
	"github.com/uber/h3-go/v4"
	"go.uber.org/zap"
)

// poiCellResolution is the H3 resolution used to key cached POI lookups.
// Resolution 7 cells are roughly city-district sized.
const poiCellResolution = 7

// POIService queries points of interest from Overpass.
type POIService struct {
	client  *httpclient.Client
	cache   *cache.Manager
	breaker *resilience.CircuitBreaker
}

// NewPOIService creates a POI lookup against the given Overpass interpreter URL.
func NewPOIService(interpreterURL, userAgent string, cacheManager *cache.Manager) *POIService {
	return &POIService{
		client: httpclient.New(interpreterURL,
			httpclient.WithTimeout(overpassTimeout),
			httpclient.WithUserAgent(userAgent),
		),
		cache: cacheManager,
	}
}

// SetCircuitBreaker attaches a breaker to the upstream calls.
func (s *POIService) SetCircuitBreaker(breaker *resilience.CircuitBreaker) {
	s.breaker = breaker
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	ID     int64             `json:"id"`
	Type   string            `json:"type"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *Coordinate       `json:"center"`
	Tags   map[string]string `json:"tags"`
}

// Query returns POIs inside the city bounding box. Upstream failures degrade
// to an empty list so a plan without stops can still be served.
func (s *POIService) Query(ctx context.Context, center Coordinate, bbox BoundingBox) []POI {
	cacheKey := cache.Keys{}.POIs(s.cellFor(center, bbox))

	var cached []POI
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached
	}

	result, err := s.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.query(ctx, bbox)
	})
	if err != nil {
		logger.WarnContext(ctx, "Overpass lookup failed, continuing without stops", zap.Error(err))
		return nil
	}

	pois := result.([]POI)
	s.cache.Set(ctx, cacheKey, pois, s.cache.TTLs().POIs)
	return pois
}

func (s *POIService) query(ctx context.Context, bbox BoundingBox) ([]POI, error) {
	// Overpass bbox order is south,west,north,east
	overpassBBox := fmt.Sprintf("%f,%f,%f,%f", bbox.South, bbox.West, bbox.North, bbox.East)
	query := fmt.Sprintf(`[out:json][timeout:25];
(
  node["amenity"="cafe"](%[1]s);
  node["amenity"="restaurant"](%[1]s);
  node["tourism"="museum"](%[1]s);
  node["shop"="books"](%[1]s);
  node["leisure"="park"](%[1]s);
);
out center 200;`, overpassBBox)

	body, err := s.client.PostForm(ctx, "", url.Values{"data": {query}})
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}

	var resp overpassResponse
	if err := decodeJSON(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid overpass response: %w", err)
	}

	pois := make([]POI, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		lat, lon, ok := el.position()
		if !ok {
			continue
		}

		name := "(no name)"
		if el.Tags != nil {
			if n, ok := el.Tags["name"]; ok && n != "" {
				name = n
			}
		}

		pois = append(pois, POI{
			ID:   el.ID,
			Type: el.Type,
			Lat:  lat,
			Lon:  lon,
			Tags: el.Tags,
			Name: name,
		})
	}

	logger.InfoContext(ctx, "Overpass lookup complete", zap.Int("pois", len(pois)))
	return pois, nil
}

// position resolves the element location, falling back to the way/relation
// center when the element is not a node.
func (el overpassElement) position() (float64, float64, bool) {
	if el.Lat != nil && el.Lon != nil {
		return *el.Lat, *el.Lon, true
	}
	if el.Center != nil {
		return el.Center.Lat, el.Center.Lon, true
	}
	return 0, 0, false
}

// cellFor derives the cache key component from the search area. The H3 cell
// of the city center groups nearby lookups; the bbox string disambiguates
// differently sized extents that share a cell.
func (s *POIService) cellFor(center Coordinate, bbox BoundingBox) string {
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: center.Lat, Lng: center.Lon}, poiCellResolution)
	if err != nil {
		return fmt.Sprintf("%f:%f:%f:%f", bbox.South, bbox.West, bbox.North, bbox.East)
	}
	return cell.String()
}
