package plan

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/marcheroute/marcheroute/pkg/cache"
	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/marcheroute/marcheroute/pkg/httpclient"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/resilience"
	"go.uber.org/zap"
)

// GeocodingService resolves free-text city names via Nominatim.
type GeocodingService struct {
	client  *httpclient.Client
	cache   *cache.Manager
	breaker *resilience.CircuitBreaker
}

// NewGeocodingService creates a geocoder against the given Nominatim base URL.
func NewGeocodingService(baseURL, userAgent string, cacheManager *cache.Manager) *GeocodingService {
	return &GeocodingService{
		client: httpclient.New(baseURL,
			httpclient.WithTimeout(nominatimTimeout),
			httpclient.WithUserAgent(userAgent),
			httpclient.WithDefaultRetry(),
		),
		cache: cacheManager,
	}
}

// SetCircuitBreaker attaches a breaker to the upstream calls.
func (s *GeocodingService) SetCircuitBreaker(breaker *resilience.CircuitBreaker) {
	s.breaker = breaker
}

type nominatimResult struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	BoundingBox []string `json:"boundingbox"`
	DisplayName string   `json:"display_name"`
}

// Geocode resolves city to its center point and bounding box. Returns a
// not-found error when Nominatim has no match.
func (s *GeocodingService) Geocode(ctx context.Context, city string) (*GeocodeResult, error) {
	var geocoded GeocodeResult
	err := s.cache.GetOrSet(ctx, cache.Keys{}.Geocode(city), s.cache.TTLs().Geocode, &geocoded,
		func(ctx context.Context) (interface{}, error) {
			return s.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
				return s.lookup(ctx, city)
			})
		})
	if err != nil {
		return nil, err
	}
	return &geocoded, nil
}

func (s *GeocodingService) lookup(ctx context.Context, city string) (*GeocodeResult, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("format", "json")
	query.Set("limit", "1")

	var results []nominatimResult
	body, err := s.client.GetWithQuery(ctx, "/search", query)
	if err != nil {
		logger.ErrorContext(ctx, "Nominatim request failed", zap.String("city", city), zap.Error(err))
		return nil, common.NewBadGatewayError("geocoding service unavailable", err)
	}

	if err := decodeJSON(body, &results); err != nil {
		return nil, common.NewBadGatewayError("invalid geocoding response", err)
	}

	if len(results) == 0 {
		return nil, common.NewNotFoundError("city not found", nil)
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, common.NewBadGatewayError("invalid geocoding response", err)
	}
	lon, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, common.NewBadGatewayError("invalid geocoding response", err)
	}

	bbox, err := parseBoundingBox(first.BoundingBox)
	if err != nil {
		return nil, common.NewBadGatewayError("invalid geocoding response", err)
	}

	logger.InfoContext(ctx, "City geocoded",
		zap.String("city", city),
		zap.String("display_name", first.DisplayName),
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
	)

	return &GeocodeResult{Lat: lat, Lon: lon, BoundingBox: bbox}, nil
}

// parseBoundingBox converts Nominatim's [south, north, west, east] string
// quadruple.
func parseBoundingBox(values []string) (BoundingBox, error) {
	if len(values) != 4 {
		return BoundingBox{}, fmt.Errorf("expected 4 bounding box values, got %d", len(values))
	}

	parsed := make([]float64, 4)
	for i, v := range values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("invalid bounding box value %q: %w", v, err)
		}
		parsed[i] = f
	}

	return BoundingBox{
		South: parsed[0],
		North: parsed[1],
		West:  parsed[2],
		East:  parsed[3],
	}, nil
}
