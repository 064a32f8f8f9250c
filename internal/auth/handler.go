// Package auth exposes the identity of the authenticated caller. Tokens are
// issued by the identity service; this package only reads them.
package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

// AdminChecker reports whether a user passes the admin gates.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

type Handler struct {
	admins AdminChecker
	logger *zap.Logger
}

func NewHandler(admins AdminChecker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{admins: admins, logger: logger}
}

// RegisterRoutes registers Auth routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.GET("/me", h.Me)
	}
}

// Me handles GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		middleware.RespondError(c, h.logger, apperr.ErrUnauthorized)
		return
	}
	isAdmin, err := h.admins.IsAdmin(c.Request.Context(), userID)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "is_admin": isAdmin})
}
