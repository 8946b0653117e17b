package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("fast handler passes through", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestTimeout(time.Second))
		router.GET("/fast", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("slow handler gets 504", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestTimeout(20 * time.Millisecond))
		router.GET("/slow", func(c *gin.Context) {
			select {
			case <-c.Request.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Contains(t, w.Body.String(), "Request timeout")
	})
}
