package requirements

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

// Handler serves the dashboard requirement check.
type Handler struct {
	evaluator *Evaluator
	logger    *zap.Logger
}

func NewHandler(evaluator *Evaluator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{evaluator: evaluator, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/dashboard/requirements", h.Check)
}

// Check handles GET /dashboard/requirements
func (h *Handler) Check(c *gin.Context) {
	result, err := h.evaluator.CheckAndNotify(c.Request.Context(), middleware.GetUserID(c), TriggerDashboard)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
