package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "nodeproof-backend/internal/common/errors"
	"nodeproof-backend/internal/common/middleware"
	"nodeproof-backend/internal/features/verification/models"
	"nodeproof-backend/internal/features/verification/service"
)

type Handler struct {
	engine *service.Engine
}

func NewHandler(engine *service.Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(router *gin.RouterGroup, adminIDs []int64) {
	verification := router.Group("/verification")
	verification.Use(middleware.RequireAuth())
	{
		verification.POST("/initiate", h.Initiate)
		verification.POST("/:id/complete", h.Complete)
		verification.POST("/:id/cancel", h.Cancel)
		verification.GET("/:id", h.Status)
	}

	admin := router.Group("/admin/verification")
	admin.Use(middleware.RequireAuth(), middleware.RequireAdmin(adminIDs))
	{
		admin.POST("/:id/approve", h.Approve)
		admin.POST("/:id/reject", h.Reject)
	}
}

// @Summary Start node verification
// @Description Issues a challenge binding the node, requester and method
// @Tags verification
// @Accept json
// @Produce json
// @Param request body models.InitiateRequest true "Node and method"
// @Success 200 {object} models.InitiateResponse
// @Failure 400 {object} middleware.ErrorResponse "Invalid method"
// @Failure 409 {object} middleware.ErrorResponse "Duplicate pending or already verified"
// @Failure 429 {object} middleware.ErrorResponse "Rate limit exceeded"
// @Router /verification/initiate [post]
func (h *Handler) Initiate(c *gin.Context) {
	requesterID, _ := middleware.GetRequesterID(c)

	var req models.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	resp, err := h.engine.Initiate(c.Request.Context(), requesterID, req.NodeID, req.Method)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Submit proof
// @Description Validates the proof and advances the challenge
// @Tags verification
// @Accept json
// @Produce json
// @Param id path string true "Challenge ID"
// @Param request body models.CompleteRequest true "Proof"
// @Success 200 {object} models.StatusResponse
// @Failure 404 {object} middleware.ErrorResponse "Challenge not found"
// @Failure 410 {object} middleware.ErrorResponse "Challenge expired"
// @Failure 422 {object} middleware.ErrorResponse "Proof rejected"
// @Router /verification/{id}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	requesterID, _ := middleware.GetRequesterID(c)

	var req models.CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	resp, err := h.engine.Complete(c.Request.Context(), requesterID, c.Param("id"), req.Proof)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel a challenge
// @Description Withdraws a non-terminal challenge; requester only
// @Tags verification
// @Produce json
// @Param id path string true "Challenge ID"
// @Success 200 {object} models.StatusResponse
// @Failure 401 {object} middleware.ErrorResponse "Not the requester"
// @Failure 409 {object} middleware.ErrorResponse "Already terminal"
// @Router /verification/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	requesterID, _ := middleware.GetRequesterID(c)

	resp, err := h.engine.Cancel(c.Request.Context(), requesterID, c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Challenge status
// @Tags verification
// @Produce json
// @Param id path string true "Challenge ID"
// @Success 200 {object} models.StatusResponse
// @Failure 404 {object} middleware.ErrorResponse "Challenge not found"
// @Router /verification/{id} [get]
func (h *Handler) Status(c *gin.Context) {
	ch, err := h.engine.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{
		ChallengeID: ch.ID,
		Status:      ch.Status,
		Message:     ch.FailureReason,
	})
}

// @Summary Approve a verification
// @Description Admin approval; creates the verified binding
// @Tags admin
// @Produce json
// @Param id path string true "Challenge ID"
// @Success 200 {object} models.StatusResponse
// @Failure 409 {object} middleware.ErrorResponse "Not awaiting approval or node claimed"
// @Router /admin/verification/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, true)
}

// @Summary Reject a verification
// @Tags admin
// @Produce json
// @Param id path string true "Challenge ID"
// @Success 200 {object} models.StatusResponse
// @Failure 409 {object} middleware.ErrorResponse "Not awaiting approval"
// @Router /admin/verification/{id}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, false)
}

func (h *Handler) decide(c *gin.Context, approved bool) {
	id := c.Param("id")
	if err := h.engine.HandleDecision(c.Request.Context(), id, approved); err != nil {
		middleware.RespondError(c, err)
		return
	}

	ch, err := h.engine.Get(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{ChallengeID: ch.ID, Status: ch.Status})
}
