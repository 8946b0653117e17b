package ui

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static
var static embed.FS

// Handler serves the embedded map page.
type Handler struct {
	files fs.FS
	page  []byte
}

// NewHandler creates the page handler.
func NewHandler() *Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// embed guarantees the directory exists
		panic(err)
	}
	page, err := fs.ReadFile(sub, "index.html")
	if err != nil {
		panic(err)
	}
	return &Handler{files: sub, page: page}
}

// RegisterRoutes mounts the page on the router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/", h.Index)
	router.StaticFS("/static", http.FS(h.files))
}

// Index serves the single-page map UI. The bytes are written directly;
// net/http's file server 301-redirects any path ending in index.html.
func (h *Handler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.page)
}
