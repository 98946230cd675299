package signals

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/groups"
	"github.com/undp-futures/ftss/pkg/ftss/models"
)

// CollaboratorRequest adds or removes a collaborator. The token is either a
// user email or a "group:{id}" reference.
type CollaboratorRequest struct {
	Collaborator string `json:"collaborator" binding:"required"`
}

// requireEditRights loads the signal and checks the caller may manage it
func (h *Handler) requireEditRights(c *gin.Context) (uint, bool) {
	user, _ := auth.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return 0, false
	}

	var signal models.Signal
	if err := h.db.First(&signal, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Signal not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch signal"})
		}
		return 0, false
	}

	canEdit, err := groups.CanUserEditSignal(h.db, id, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
		return 0, false
	}
	if !canEdit {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have edit rights on this signal"})
		return 0, false
	}
	return id, true
}

// ListCollaborators returns the signal's collaborators in wire format
// @Summary List signal collaborators
// @Description List the collaborators of a signal: user emails and group:{id} references
// @Tags signals
// @Produce json
// @Param id path int true "Signal ID"
// @Success 200 {array} string
// @Security BearerAuth
// @Router /signals/{id}/collaborators [get]
func (h *Handler) ListCollaborators(c *gin.Context) {
	id, ok := h.requireEditRights(c)
	if !ok {
		return
	}

	var direct []models.SignalCollaborator
	if err := h.db.Where("signal_id = ?", id).Order("id").Find(&direct).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch collaborators"})
		return
	}
	var links []models.SignalCollaboratorGroup
	if err := h.db.Where("signal_id = ?", id).Order("id").Find(&links).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch collaborators"})
		return
	}

	tokens := make([]string, 0, len(direct)+len(links))
	for _, d := range direct {
		tokens = append(tokens, models.UserCollaborator(d.UserEmail).String())
	}
	for _, l := range links {
		tokens = append(tokens, models.GroupCollaborator(l.GroupID).String())
	}
	c.JSON(http.StatusOK, tokens)
}

// AddCollaborator adds a user or group collaborator to a signal
// @Summary Add a signal collaborator
// @Description Grant edit rights to a user by email or to every member of a group via a group:{id} reference
// @Tags signals
// @Accept json
// @Produce json
// @Param id path int true "Signal ID"
// @Param request body CollaboratorRequest true "Collaborator token"
// @Success 200 {object} map[string]string "Collaborator added"
// @Failure 400 {object} map[string]string "Invalid collaborator"
// @Security BearerAuth
// @Router /signals/{id}/collaborators [post]
func (h *Handler) AddCollaborator(c *gin.Context) {
	var req CollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, ok := h.requireEditRights(c)
	if !ok {
		return
	}

	collab, err := models.ParseCollaborator(req.Collaborator)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if collab.IsGroup() {
		var count int64
		if err := h.db.Model(&models.UserGroup{}).Where("id = ?", collab.GroupID).Count(&count).Error; err != nil || count == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
		link := models.SignalCollaboratorGroup{SignalID: id, GroupID: collab.GroupID}
		err = h.db.Where("signal_id = ? AND group_id = ?", id, collab.GroupID).
			FirstOrCreate(&link).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add collaborator"})
			return
		}
	} else {
		row := models.SignalCollaborator{SignalID: id, UserEmail: collab.Email}
		err = h.db.Where("signal_id = ? AND user_email = ?", id, collab.Email).
			FirstOrCreate(&row).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add collaborator"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collaborator added"})
}

// RemoveCollaborator removes a user or group collaborator from a signal
// @Summary Remove a signal collaborator
// @Description Revoke a collaborator given as a user email or group:{id} reference
// @Tags signals
// @Produce json
// @Param id path int true "Signal ID"
// @Param collaborator query string true "Collaborator token"
// @Success 200 {object} map[string]string "Collaborator removed"
// @Failure 400 {object} map[string]string "Invalid collaborator"
// @Security BearerAuth
// @Router /signals/{id}/collaborators [delete]
func (h *Handler) RemoveCollaborator(c *gin.Context) {
	id, ok := h.requireEditRights(c)
	if !ok {
		return
	}

	collab, err := models.ParseCollaborator(c.Query("collaborator"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if collab.IsGroup() {
		err = h.db.Where("signal_id = ? AND group_id = ?", id, collab.GroupID).
			Delete(&models.SignalCollaboratorGroup{}).Error
	} else {
		err = h.db.Where("signal_id = ? AND user_email = ?", id, collab.Email).
			Delete(&models.SignalCollaborator{}).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove collaborator"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Collaborator removed"})
}
