package groups

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/models"
)

// Handler handles user group requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name         string   `json:"name" binding:"required"`
	MemberEmails []string `json:"member_emails"`
}

// UpdateGroupRequest represents the request to rename a group
type UpdateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// MemberRequest identifies a user to add to a group
type MemberRequest struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// SignalRequest identifies a signal to link to a group
type SignalRequest struct {
	SignalID uint `json:"signal_id" binding:"required"`
}

// CollaboratorRequest grants a member edit rights on a group signal
type CollaboratorRequest struct {
	SignalID uint `json:"signal_id" binding:"required"`
	UserID   uint `json:"user_id" binding:"required"`
}

// GroupSignal is a signal in a group listing with the caller's edit rights
type GroupSignal struct {
	models.Signal
	CanEdit bool `json:"can_edit"`
}

// GroupWithSignals is a group expanded with its signals for the caller
type GroupWithSignals struct {
	models.UserGroup
	Signals []GroupSignal `json:"signals"`
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// canManage reports whether the user may mutate the group
func canManage(user models.User, group *models.UserGroup) bool {
	return user.IsStaff() || group.HasAdmin(user.ID)
}

// List returns all groups
// @Summary List user groups
// @Description Get all user groups (staff only)
// @Tags user-groups
// @Produce json
// @Success 200 {array} models.UserGroup
// @Security BearerAuth
// @Router /user-groups [get]
func (h *Handler) List(c *gin.Context) {
	var all []models.UserGroup
	if err := h.db.Order("id").Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}
	c.JSON(http.StatusOK, all)
}

// Create creates a new group with the caller as admin
// @Summary Create a user group
// @Description Create a group with the current user as admin; unknown member emails are skipped
// @Tags user-groups
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "Group details"
// @Success 201 {object} models.UserGroup
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /user-groups [post]
func (h *Handler) Create(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	groupID, err := CreateGroup(h.db, req.Name, user, req.MemberEmails)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	var group models.UserGroup
	if err := h.db.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load group"})
		return
	}
	c.JSON(http.StatusCreated, group)
}

// Get returns one group
// @Summary Get a user group
// @Description Get a group by ID; the caller must be a member or staff
// @Tags user-groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} models.UserGroup
// @Failure 404 {object} map[string]string "Group not found"
// @Security BearerAuth
// @Router /user-groups/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	group, found, err := loadGroup(h.db, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	if !user.IsStaff() && !group.HasMember(user.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this group"})
		return
	}
	c.JSON(http.StatusOK, group)
}

// Update renames a group
// @Summary Rename a user group
// @Tags user-groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body UpdateGroupRequest true "New name"
// @Success 200 {object} models.UserGroup
// @Security BearerAuth
// @Router /user-groups/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, found, err := loadGroup(h.db, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	if !canManage(user, group) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Group admin access required"})
		return
	}

	group.Name = req.Name
	if err := h.db.Save(group).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	c.JSON(http.StatusOK, group)
}

// Delete removes a group and its signal links
// @Summary Delete a user group
// @Tags user-groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} map[string]string "Group deleted"
// @Security BearerAuth
// @Router /user-groups/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	group, found, err := loadGroup(h.db, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	if !canManage(user, group) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Group admin access required"})
		return
	}

	if _, err := DeleteGroup(h.db, groupID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

// Me returns the caller's groups with their signals and edit rights
// @Summary Get current user's groups
// @Description Get the groups the caller belongs to, with each group's signals and a per-signal can_edit flag
// @Tags user-groups
// @Produce json
// @Success 200 {array} GroupWithSignals
// @Security BearerAuth
// @Router /user-groups/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	mine, err := GroupsForUser(h.db, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	result := make([]GroupWithSignals, 0, len(mine))
	for _, g := range mine {
		expanded := GroupWithSignals{UserGroup: g, Signals: []GroupSignal{}}
		if len(g.SignalIDs) > 0 {
			var signals []models.Signal
			if err := h.db.Where("id IN ?", []uint(g.SignalIDs)).Find(&signals).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group signals"})
				return
			}
			for _, s := range signals {
				canEdit, err := CanUserEditSignal(h.db, s.ID, user)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
					return
				}
				expanded.Signals = append(expanded.Signals, GroupSignal{Signal: s, CanEdit: canEdit})
			}
		}
		result = append(result, expanded)
	}
	c.JSON(http.StatusOK, result)
}

// mutate loads the group, checks admin rights, applies op and reports the outcome
func (h *Handler) mutate(c *gin.Context, groupID uint, op func() (bool, error)) {
	user, _ := auth.CurrentUser(c)

	group, found, err := loadGroup(h.db, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}
	if !canManage(user, group) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Group admin access required"})
		return
	}

	ok, err := op()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group update not applicable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group updated"})
}

// AddMember adds a user to a group by ID or email
// @Summary Add a group member
// @Tags user-groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body MemberRequest true "User to add"
// @Success 200 {object} map[string]string "Group updated"
// @Security BearerAuth
// @Router /user-groups/{id}/users [post]
func (h *Handler) AddMember(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := req.UserID
	if userID == 0 && req.Email != "" {
		var member models.User
		if err := h.db.Where("email = ?", req.Email).First(&member).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		userID = member.ID
	}
	if userID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id or email required"})
		return
	}

	h.mutate(c, groupID, func() (bool, error) { return AddUser(h.db, groupID, userID) })
}

// RemoveMember removes a user from a group
// @Summary Remove a group member
// @Description Remove a member; their per-signal edit grants in this group are revoked too
// @Tags user-groups
// @Produce json
// @Param id path int true "Group ID"
// @Param userID path int true "User ID"
// @Success 200 {object} map[string]string "Group updated"
// @Security BearerAuth
// @Router /user-groups/{id}/users/{userID} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	h.mutate(c, groupID, func() (bool, error) { return RemoveUser(h.db, groupID, userID) })
}

// AddGroupSignal links a signal to a group
// @Summary Add a signal to a group
// @Tags user-groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body SignalRequest true "Signal to link"
// @Success 200 {object} map[string]string "Group updated"
// @Security BearerAuth
// @Router /user-groups/{id}/signals [post]
func (h *Handler) AddGroupSignal(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	if err := h.db.Model(&models.Signal{}).Where("id = ?", req.SignalID).Count(&count).Error; err != nil || count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Signal not found"})
		return
	}

	h.mutate(c, groupID, func() (bool, error) { return AddSignal(h.db, groupID, req.SignalID) })
}

// RemoveGroupSignal unlinks a signal from a group
// @Summary Remove a signal from a group
// @Description Unlink a signal; its collaborator entry in this group is dropped too
// @Tags user-groups
// @Produce json
// @Param id path int true "Group ID"
// @Param signalID path int true "Signal ID"
// @Success 200 {object} map[string]string "Group updated"
// @Security BearerAuth
// @Router /user-groups/{id}/signals/{signalID} [delete]
func (h *Handler) RemoveGroupSignal(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}
	signalID, ok := parseID(c, "signalID")
	if !ok {
		return
	}
	h.mutate(c, groupID, func() (bool, error) { return RemoveSignal(h.db, groupID, signalID) })
}

// AddGroupCollaborator grants a member edit rights on a group signal
// @Summary Grant per-signal edit rights
// @Description Grant a group member edit rights on one of the group's signals
// @Tags user-groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body CollaboratorRequest true "Grant details"
// @Success 200 {object} map[string]string "Group updated"
// @Failure 404 {object} map[string]string "Signal not in group or user not a member"
// @Security BearerAuth
// @Router /user-groups/{id}/collaborators [post]
func (h *Handler) AddGroupCollaborator(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req CollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.mutate(c, groupID, func() (bool, error) {
		return AddCollaborator(h.db, groupID, req.SignalID, req.UserID)
	})
}

// RemoveGroupCollaborator revokes a per-signal edit grant
// @Summary Revoke per-signal edit rights
// @Tags user-groups
// @Produce json
// @Param id path int true "Group ID"
// @Param signalID path int true "Signal ID"
// @Param userID path int true "User ID"
// @Success 200 {object} map[string]string "Group updated"
// @Security BearerAuth
// @Router /user-groups/{id}/collaborators/{signalID}/{userID} [delete]
func (h *Handler) RemoveGroupCollaborator(c *gin.Context) {
	groupID, ok := parseID(c, "id")
	if !ok {
		return
	}
	signalID, ok := parseID(c, "signalID")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userID")
	if !ok {
		return
	}
	h.mutate(c, groupID, func() (bool, error) {
		return RemoveCollaborator(h.db, groupID, signalID, userID)
	})
}

// RegisterRoutes registers user group routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", auth.RequireCurator(), h.List)
	rg.POST("", auth.RequireUser(), h.Create)
	rg.GET("/me", auth.RequireUser(), h.Me)
	rg.GET("/:id", auth.RequireUser(), h.Get)
	rg.PUT("/:id", auth.RequireUser(), h.Update)
	rg.DELETE("/:id", auth.RequireUser(), h.Delete)
	rg.POST("/:id/users", auth.RequireUser(), h.AddMember)
	rg.DELETE("/:id/users/:userID", auth.RequireUser(), h.RemoveMember)
	rg.POST("/:id/signals", auth.RequireUser(), h.AddGroupSignal)
	rg.DELETE("/:id/signals/:signalID", auth.RequireUser(), h.RemoveGroupSignal)
	rg.POST("/:id/collaborators", auth.RequireUser(), h.AddGroupCollaborator)
	rg.DELETE("/:id/collaborators/:signalID/:userID", auth.RequireUser(), h.RemoveGroupCollaborator)
}
