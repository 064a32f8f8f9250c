package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

// ConnectionHandler lets the API Gateway connect and disconnect routes
// register websocket connections for the authenticated user.
type ConnectionHandler struct {
	store  *ConnectionStore
	logger *zap.Logger
}

func NewConnectionHandler(store *ConnectionStore, logger *zap.Logger) *ConnectionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionHandler{store: store, logger: logger}
}

func (h *ConnectionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	push := rg.Group("/push/connections")
	{
		push.POST("", h.Connect)
		push.DELETE("/:connection_id", h.Disconnect)
	}
}

type connectBody struct {
	ConnectionID string `json:"connection_id" binding:"required"`
}

// Connect handles POST /push/connections
func (h *ConnectionHandler) Connect(c *gin.Context) {
	var body connectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		middleware.RespondError(c, h.logger, apperr.Validation("%v", err))
		return
	}
	if err := h.store.Add(c.Request.Context(), middleware.GetUserID(c), body.ConnectionID); err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Disconnect handles DELETE /push/connections/:connection_id
func (h *ConnectionHandler) Disconnect(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), middleware.GetUserID(c), c.Param("connection_id")); err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
