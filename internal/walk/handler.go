package walk

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marcheroute/marcheroute/pkg/common"
	"github.com/marcheroute/marcheroute/pkg/logger"
	"github.com/marcheroute/marcheroute/pkg/websocket"
	"go.uber.org/zap"
)

// GenerateRequest is the walk generation input.
type GenerateRequest struct {
	City string `json:"city" binding:"required"`
}

// CreateRequest optionally starts generation right after the walk is created.
type CreateRequest struct {
	City string `json:"city"`
}

// Handler exposes the walk endpoints and the map websocket.
type Handler struct {
	controller *Controller
	hub        *websocket.Hub
}

// NewHandler creates a walk handler.
func NewHandler(controller *Controller, hub *websocket.Hub) *Handler {
	return &Handler{controller: controller, hub: hub}
}

// RegisterRoutes mounts the walk REST endpoints on the router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/api/walks", h.CreateWalk)
	router.GET("/api/walks/:id", h.GetWalk)
	router.POST("/api/walks/:id/generate", h.Generate)
	router.DELETE("/api/walks/:id", h.DeleteWalk)
}

// RegisterSocket mounts the map command stream. Registered separately so the
// connection can stay out of the request timeout chain; it lives as long as
// the page does.
func (h *Handler) RegisterSocket(router gin.IRouter) {
	router.GET("/ws/map/:id", h.MapSocket)
}

// CreateWalk handles POST /api/walks. With a city in the body the full
// generate sequence runs before the response is written.
func (h *Handler) CreateWalk(c *gin.Context) {
	var req CreateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	state := h.controller.Create()

	if req.City != "" {
		generated, err := h.controller.Generate(c.Request.Context(), state.ID, req.City)
		if err != nil {
			common.HandleServiceError(c, err, "failed to generate walk")
			return
		}
		state = generated
	}

	common.CreatedResponse(c, state)
}

// GetWalk handles GET /api/walks/:id.
func (h *Handler) GetWalk(c *gin.Context) {
	state, err := h.controller.Get(c.Param("id"))
	if err != nil {
		common.HandleServiceError(c, err, "failed to load walk")
		return
	}
	common.SuccessResponse(c, state)
}

// Generate handles POST /api/walks/:id/generate.
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	state, err := h.controller.Generate(c.Request.Context(), c.Param("id"), req.City)
	if err != nil {
		common.HandleServiceError(c, err, "failed to generate walk")
		return
	}

	common.SuccessResponse(c, state)
}

// DeleteWalk handles DELETE /api/walks/:id. The walk's map session is
// released with it.
func (h *Handler) DeleteWalk(c *gin.Context) {
	h.controller.Release(c.Param("id"))
	common.SuccessResponse(c, gin.H{"released": true})
}

// MapSocket handles GET /ws/map/:id, attaching the page to the walk's
// command stream.
func (h *Handler) MapSocket(c *gin.Context) {
	walkID := c.Param("id")
	if _, err := h.controller.Get(walkID); err != nil {
		common.HandleServiceError(c, err, "failed to load walk")
		return
	}

	if err := websocket.ServeWS(h.hub, walkID, c.Writer, c.Request); err != nil {
		logger.ErrorContext(c.Request.Context(), "Websocket upgrade failed",
			zap.String("walk_id", walkID),
			zap.Error(err),
		)
	}
}
