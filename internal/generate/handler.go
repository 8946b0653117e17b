package generate

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marcheroute/marcheroute/pkg/common"
)

// Generator is the service contract the handler depends on.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptRequest is the generation input.
type PromptRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// Answer is the generation output.
type Answer struct {
	Answer string `json:"answer"`
}

// Handler exposes the generation endpoint.
type Handler struct {
	service Generator
}

// NewHandler creates a generation handler.
func NewHandler(service Generator) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the generation endpoint on the router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/generate", h.Generate)
}

// Generate handles POST /generate.
func (h *Handler) Generate(c *gin.Context) {
	var req PromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	answer, err := h.service.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		common.HandleServiceError(c, err, "failed to generate summary")
		return
	}

	common.SuccessResponse(c, Answer{Answer: answer})
}
