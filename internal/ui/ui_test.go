package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUIRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler().RegisterRoutes(router)
	return router
}

func TestIndexServesThePage(t *testing.T) {
	router := setupUIRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.Contains(t, body, `id="map"`)
	assert.Contains(t, body, `id="city"`)
	assert.Contains(t, body, "maplibre")
}

func TestIndexDoesNotRedirect(t *testing.T) {
	router := setupUIRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	router.ServeHTTP(w, req)

	assert.NotEqual(t, http.StatusMovedPermanently, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
	assert.NotEmpty(t, w.Body.Bytes())
}
