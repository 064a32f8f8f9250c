package jobs

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/internal/apperr"
	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

// AdminChecker reports whether a user may operate the job runner.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// AdminHandler exposes the runner to admins.
type AdminHandler struct {
	runner *Runner
	admins AdminChecker
	logger *zap.Logger
}

func NewAdminHandler(runner *Runner, admins AdminChecker, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{runner: runner, admins: admins, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin/jobs", h.requireAdmin)
	{
		admin.GET("", h.List)
		admin.POST("/:name/run", h.Run)
	}
}

func (h *AdminHandler) requireAdmin(c *gin.Context) {
	ok, err := h.admins.IsAdmin(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	if !ok {
		middleware.RespondError(c, h.logger, apperr.ErrUnauthorized)
		return
	}
	c.Next()
}

// List handles GET /admin/jobs
func (h *AdminHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": h.runner.Jobs()})
}

// Run handles POST /admin/jobs/:name/run
func (h *AdminHandler) Run(c *gin.Context) {
	report, err := h.runner.Run(c.Request.Context(), c.Param("name"))
	if err != nil && report == nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"report": report, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
