package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nodeproof-backend/internal/common/middleware"
	"nodeproof-backend/internal/features/tier/service"
)

type Handler struct {
	service *service.Service
}

func NewHandler(service *service.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/nodes/:id/tier", h.GetTier)
}

// @Summary Node tier assessment
// @Description Recomputes the node's tier from verification and liveness facts
// @Tags tier
// @Produce json
// @Param id path string true "Node ID"
// @Success 200 {object} models.Assessment
// @Failure 404 {object} middleware.ErrorResponse "Node not observed yet"
// @Router /nodes/{id}/tier [get]
func (h *Handler) GetTier(c *gin.Context) {
	assessment, err := h.service.Assess(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}
