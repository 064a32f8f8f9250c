package collaboration

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gatherhub/collab-portal/collab-portal-backend/pkg/middleware"
)

// Handler exposes the workflow over HTTP. The caller id always comes from the
// authenticated context, never from the body.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new collaboration handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers collaboration routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	collab := rg.Group("/collaborations")
	{
		collab.POST("", h.Submit)
		collab.GET("", h.List)
		collab.GET("/:id", h.Get)
		collab.POST("/:id/admin-decision", h.AdminDecide)
		collab.POST("/:id/response", h.Respond)
		collab.POST("/:id/counter", h.Counter)
		collab.POST("/:id/counter/forward", h.ForwardCounter)
		collab.POST("/:id/counter/decision", h.DecideOnCounter)
		collab.POST("/:id/confirm", h.Confirm)
		collab.POST("/:id/cancel", h.Cancel)
		collab.POST("/:id/messages", h.PostMessage)
		collab.POST("/:id/messages/read", h.MarkThreadRead)
	}
}

type submitBody struct {
	Kind      Kind `json:"kind" binding:"required"`
	Recipient struct {
		PartyID string `json:"party_id"`
	} `json:"recipient"`
	Details RequestDetails `json:"request_details"`
}

// Submit handles POST /collaborations
func (h *Handler) Submit(c *gin.Context) {
	var body submitBody
	if !h.bind(c, &body) {
		return
	}

	req, err := h.service.Submit(c.Request.Context(), SubmitRequest{
		InitiatorID: middleware.GetUserID(c),
		RecipientID: body.Recipient.PartyID,
		Kind:        body.Kind,
		Details:     body.Details,
	})
	h.respond(c, http.StatusCreated, req, err)
}

// List handles GET /collaborations?status=a,b&kind=&limit=&offset=
func (h *Handler) List(c *gin.Context) {
	opts := ListOptions{Kind: Kind(c.Query("kind"))}
	opts.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	opts.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s, err := NormalizeStatus(part)
			if err != nil {
				middleware.RespondError(c, h.logger, err)
				return
			}
			opts.Statuses = append(opts.Statuses, s)
		}
	}

	items, err := h.service.List(c.Request.Context(), middleware.GetUserID(c), opts)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": items, "count": len(items)})
}

// Get handles GET /collaborations/:id
func (h *Handler) Get(c *gin.Context) {
	req, err := h.service.Get(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	h.respond(c, http.StatusOK, req, err)
}

type adminDecisionBody struct {
	Decision ReviewDecision `json:"decision" binding:"required"`
	Notes    string         `json:"notes"`
}

// AdminDecide handles POST /collaborations/:id/admin-decision
func (h *Handler) AdminDecide(c *gin.Context) {
	var body adminDecisionBody
	if !h.bind(c, &body) {
		return
	}
	req, err := h.service.AdminDecide(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), body.Decision, body.Notes)
	h.respond(c, http.StatusOK, req, err)
}

type decisionBody struct {
	Decision ResponseDecision `json:"decision" binding:"required"`
	Message  string           `json:"message"`
}

// Respond handles POST /collaborations/:id/response
func (h *Handler) Respond(c *gin.Context) {
	var body decisionBody
	if !h.bind(c, &body) {
		return
	}
	req, err := h.service.Respond(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), body.Decision, body.Message)
	h.respond(c, http.StatusOK, req, err)
}

// Counter handles POST /collaborations/:id/counter
func (h *Handler) Counter(c *gin.Context) {
	var body CounterProposal
	if !h.bind(c, &body) {
		return
	}
	req, err := h.service.Counter(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), body)
	h.respond(c, http.StatusOK, req, err)
}

type notesBody struct {
	Notes string `json:"notes"`
}

// ForwardCounter handles POST /collaborations/:id/counter/forward
func (h *Handler) ForwardCounter(c *gin.Context) {
	var body notesBody
	if !h.bindOptional(c, &body) {
		return
	}
	req, err := h.service.AdminForwardCounter(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), body.Notes)
	h.respond(c, http.StatusOK, req, err)
}

// DecideOnCounter handles POST /collaborations/:id/counter/decision
func (h *Handler) DecideOnCounter(c *gin.Context) {
	var body decisionBody
	if !h.bind(c, &body) {
		return
	}
	req, err := h.service.InitiatorDecideOnCounter(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), body.Decision, body.Message)
	h.respond(c, http.StatusOK, req, err)
}

type messageBody struct {
	Message string `json:"message"`
}

// Confirm handles POST /collaborations/:id/confirm
func (h *Handler) Confirm(c *gin.Context) {
	var body messageBody
	if !h.bindOptional(c, &body) {
		return
	}
	req, err := h.service.ConfirmAcceptance(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), body.Message)
	h.respond(c, http.StatusOK, req, err)
}

type cancelBody struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /collaborations/:id/cancel
func (h *Handler) Cancel(c *gin.Context) {
	var body cancelBody
	if !h.bindOptional(c, &body) {
		return
	}
	req, err := h.service.Cancel(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), body.Reason)
	h.respond(c, http.StatusOK, req, err)
}

type postMessageBody struct {
	Text string `json:"text" binding:"required"`
}

// PostMessage handles POST /collaborations/:id/messages
func (h *Handler) PostMessage(c *gin.Context) {
	var body postMessageBody
	if !h.bind(c, &body) {
		return
	}
	req, err := h.service.PostMessage(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), body.Text)
	h.respond(c, http.StatusCreated, req, err)
}

// MarkThreadRead handles POST /collaborations/:id/messages/read
func (h *Handler) MarkThreadRead(c *gin.Context) {
	req, err := h.service.MarkThreadRead(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	h.respond(c, http.StatusOK, req, err)
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_FAILED"})
		return false
	}
	return true
}

// bindOptional accepts an empty body.
func (h *Handler) bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bind(c, dst)
}

func (h *Handler) respond(c *gin.Context, status int, req *CollaborationRequest, err error) {
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(status, req)
}
