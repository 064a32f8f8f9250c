package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

// SocketServer upgrades an authenticated request to a push connection.
type SocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string) error
}

// Handler handles HTTP requests for notifications
type Handler struct {
	service *Service
	sockets SocketServer
	logger  *zap.Logger
}

// NewHandler creates a new notification handler. sockets may be nil when push
// is not served by this process.
func NewHandler(service *Service, sockets SocketServer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, sockets: sockets, logger: logger}
}

// RegisterRoutes registers notification routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	n := rg.Group("/notifications")
	{
		n.GET("", h.List)
		n.GET("/unread-count", h.UnreadCount)
		n.PUT("/read-all", h.MarkAllRead)
		n.PUT("/:id/read", h.MarkRead)
		n.PUT("/:id/archive", h.Archive)
		n.POST("/:id/delivery", h.RecordDelivery)
	}
	if h.sockets != nil {
		rg.GET("/ws", h.Connect)
	}
}

// List handles GET /notifications
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.service.List(c.Request.Context(), middleware.GetUserID(c), ListOptions{
		UnreadOnly:      c.Query("unread_only") == "true",
		IncludeArchived: c.Query("include_archived") == "true",
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items, "count": len(items)})
}

// UnreadCount handles GET /notifications/unread-count
func (h *Handler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkRead handles PUT /notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	n, err := h.service.MarkRead(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

type markAllReadRequest struct {
	IDs []string `json:"ids"`
}

// MarkAllRead handles PUT /notifications/read-all. An empty body marks every
// unread notification.
func (h *Handler) MarkAllRead(c *gin.Context) {
	var req markAllReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILED"})
			return
		}
	}

	marked, err := h.service.MarkAllRead(c.Request.Context(), middleware.GetUserID(c), req.IDs)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// Archive handles PUT /notifications/:id/archive
func (h *Handler) Archive(c *gin.Context) {
	n, err := h.service.Archive(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

type deliveryCallbackRequest struct {
	Channel Channel        `json:"channel" binding:"required"`
	Status  DeliveryStatus `json:"status" binding:"required"`
	Detail  string         `json:"detail"`
}

// RecordDelivery handles POST /notifications/:id/delivery
func (h *Handler) RecordDelivery(c *gin.Context) {
	var req deliveryCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILED"})
		return
	}

	n, err := h.service.RecordDelivery(c.Request.Context(), c.Param("id"), req.Channel, req.Status, req.Detail)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// Connect handles GET /ws
func (h *Handler) Connect(c *gin.Context) {
	if err := h.sockets.ServeWS(c.Writer, c.Request, middleware.GetUserID(c)); err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}
