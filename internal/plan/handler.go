package plan

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marcheroute/marcheroute/pkg/common"
)

// Planner is the service contract the handler depends on.
type Planner interface {
	BuildPlan(ctx context.Context, req Request) (*Plan, error)
}

// Handler exposes the plan endpoints.
type Handler struct {
	service Planner
}

// NewHandler creates a plan handler.
func NewHandler(service Planner) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the plan endpoints on the router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/plan/:city/:duration", h.GetPlan)
	router.POST("/plan", h.CreatePlan)
}

// GetPlan handles GET /plan/:city/:duration.
func (h *Handler) GetPlan(c *gin.Context) {
	city := c.Param("city")
	if city == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "city is required")
		return
	}

	duration := DefaultDurationMinutes
	if raw := c.Param("duration"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			common.ErrorResponse(c, http.StatusBadRequest, "duration must be a positive integer")
			return
		}
		duration = parsed
	}

	h.respond(c, Request{City: city, DurationMinutes: duration})
}

// CreatePlan handles POST /plan.
func (h *Handler) CreatePlan(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	h.respond(c, req)
}

func (h *Handler) respond(c *gin.Context, req Request) {
	result, err := h.service.BuildPlan(c.Request.Context(), req)
	if err != nil {
		common.HandleServiceError(c, err, "failed to compute plan")
		return
	}

	common.SuccessResponse(c, result)
}
