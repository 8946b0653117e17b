package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCorrelationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c))
	})
	return router
}

func TestCorrelationIDGeneratedWhenMissing(t *testing.T) {
	router := setupCorrelationRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	header := w.Header().Get(CorrelationIDHeader)
	require.NotEmpty(t, header)
	_, err := uuid.Parse(header)
	assert.NoError(t, err, "generated correlation IDs are UUIDs")
	assert.Equal(t, header, w.Body.String())
}

func TestCorrelationIDPreservedWhenValid(t *testing.T) {
	router := setupCorrelationRouter()
	id := uuid.New().String()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(CorrelationIDHeader, id)
	router.ServeHTTP(w, req)

	assert.Equal(t, id, w.Header().Get(CorrelationIDHeader))
	assert.Equal(t, id, w.Body.String())
}

func TestCorrelationIDReplacedWhenInvalid(t *testing.T) {
	router := setupCorrelationRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(CorrelationIDHeader, "not-a-uuid")
	router.ServeHTTP(w, req)

	header := w.Header().Get(CorrelationIDHeader)
	require.NotEmpty(t, header)
	assert.NotEqual(t, "not-a-uuid", header)
	_, err := uuid.Parse(header)
	assert.NoError(t, err)
}
