package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/settings/notifications", h.GetNotifications)
	r.PUT("/settings/notifications", h.UpdateNotifications)
}

// GetNotifications handles GET /settings/notifications
func (h *Handler) GetNotifications(c *gin.Context) {
	prefs, err := h.service.GetNotifications(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// UpdateNotifications handles PUT /settings/notifications
func (h *Handler) UpdateNotifications(c *gin.Context) {
	var payload UpdateNotificationsRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		middleware.RespondError(c, h.logger, apperr.Validation("invalid request body: %v", err))
		return
	}
	prefs, err := h.service.UpdateNotifications(c.Request.Context(), middleware.GetUserID(c), payload)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}
