package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPlanDecodesTaggedPlan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/plan/Paris/120", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {
				"city": "Paris",
				"center": {"lat": 48.8566, "lon": 2.3522},
				"stops": [{"id": 1, "type": "node", "lat": 48.86, "lon": 2.34, "name": "Cafe Central"}],
				"route": {"type": "fallback", "polyline": [[48.8566, 2.3522], [48.86, 2.34]]}
			}
		}`))
	}))
	defer server.Close()

	client := NewWithBaseURL(server.URL)
	result, err := client.RequestPlan(context.Background(), "Paris", 120)
	require.NoError(t, err)

	assert.Equal(t, "Paris", result.City)
	assert.Equal(t, 48.8566, result.Center.Lat)
	require.Len(t, result.Stops, 1)
	require.True(t, result.HasPolyline())
	assert.Equal(t, 48.8566, result.Route.Polyline[0].Lat())
	assert.Equal(t, 2.3522, result.Route.Polyline[0].Lon())
}

func TestRequestPlanEscapesCityPath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"success": true, "data": {"city": "Le Havre", "center": {"lat": 0, "lon": 0}, "stops": [], "route": null}}`))
	}))
	defer server.Close()

	client := NewWithBaseURL(server.URL)
	_, err := client.RequestPlan(context.Background(), "Le Havre", 120)
	require.NoError(t, err)
	assert.Equal(t, "/plan/Le%20Havre/120", gotPath)
}

func TestRequestPlanPropagatesUpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success": false, "error": {"code": 404, "message": "city not found"}}`))
	}))
	defer server.Close()

	client := NewWithBaseURL(server.URL)
	_, err := client.RequestPlan(context.Background(), "Atlantis", 120)
	require.Error(t, err)

	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.Code)
	assert.Equal(t, "city not found", appErr.Message)
}

func TestRequestPlanRejectsMalformedPolyline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"data": {
				"city": "Paris",
				"center": {"lat": 48.85, "lon": 2.35},
				"stops": [],
				"route": {"type": "fallback", "polyline": [[48.85, 2.35, 7.0]]}
			}
		}`))
	}))
	defer server.Close()

	client := NewWithBaseURL(server.URL)
	_, err := client.RequestPlan(context.Background(), "Paris", 120)
	assert.Error(t, err, "a pair that is not exactly two numbers must fail decoding")
}

func TestRequestPlanMissingRouteIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"city": "Paris", "center": {"lat": 48.85, "lon": 2.35}, "stops": [], "route": null}}`))
	}))
	defer server.Close()

	client := NewWithBaseURL(server.URL)
	result, err := client.RequestPlan(context.Background(), "Paris", 120)
	require.NoError(t, err)
	assert.False(t, result.HasPolyline())
}

func TestRequestSummary(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "string answer",
			response: `{"success": true, "data": {"answer": "a lovely stroll"}}`,
			want:     "a lovely stroll",
		},
		{
			name:     "non-string answer is stringified",
			response: `{"success": true, "data": {"answer": 42}}`,
			want:     "42",
		},
		{
			name:     "object answer keeps its JSON form",
			response: `{"success": true, "data": {"answer": {"text": "hi"}}}`,
			want:     `{"text": "hi"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/generate", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client := NewWithBaseURL(server.URL)
			answer, err := client.RequestSummary(context.Background(), "describe the walk")
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer)
		})
	}
}

func TestRequestSummaryUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success": false, "error": {"code": 502, "message": "text generation upstream failed"}}`))
	}))
	defer server.Close()

	client := NewWithBaseURL(server.URL)
	_, err := client.RequestSummary(context.Background(), "describe the walk")
	require.Error(t, err)

	appErr, ok := err.(*common.AppError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, appErr.Code)
}
