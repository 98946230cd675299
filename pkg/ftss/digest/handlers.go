package digest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/email"
)

// Handler exposes the email endpoints
type Handler struct {
	service *Service
	sender  email.Sender
}

// NewHandler creates a new digest handler
func NewHandler(db *gorm.DB, sender email.Sender) *Handler {
	return &Handler{service: NewService(db, sender), sender: sender}
}

// SendRequest represents an ad-hoc email request
type SendRequest struct {
	To      []string `json:"to" binding:"required,min=1"`
	Subject string   `json:"subject" binding:"required"`
	Body    string   `json:"body" binding:"required"`
}

// Send delivers an ad-hoc email
// @Summary Send an email
// @Description Send an email to the given recipients. Admin role required.
// @Tags email
// @Accept json
// @Produce json
// @Param request body SendRequest true "Email content"
// @Success 200 {object} map[string]string "Email sent"
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /email/send [post]
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sender.Send(c.Request.Context(), req.To, req.Subject, req.Body, "text/html"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send email"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email sent"})
}

// SendDigest mails the weekly digest to the curation team
// @Summary Send the weekly digest
// @Description Send the weekly approved-signals digest to all curators and admins. Admin role required.
// @Tags email
// @Produce json
// @Param kind query string false "digest kind: weekly (default) or drafts"
// @Success 200 {object} map[string]string "Digest sent"
// @Security BearerAuth
// @Router /email/digest [post]
func (h *Handler) SendDigest(c *gin.Context) {
	var err error
	if c.Query("kind") == "drafts" {
		err = h.service.SendDraftDigest(c.Request.Context())
	} else {
		err = h.service.SendWeeklyDigest(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send digest"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Digest sent"})
}

// RegisterRoutes registers email routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/send", auth.RequireAdmin(), h.Send)
	rg.POST("/digest", auth.RequireAdmin(), h.SendDigest)
}
