package users

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/models"
	"github.com/undp-futures/ftss/pkg/ftss/search"
)

// Handler handles user administration requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UpdateUserRequest represents a partial user update
type UpdateUserRequest struct {
	ID     uint    `json:"id"`
	Name   *string `json:"name"`
	Unit   *string `json:"unit"`
	Acclab *bool   `json:"acclab"`
	Role   *string `json:"role"`
}

// Search returns a filtered, paginated page of users
// @Summary Search users
// @Description Search users by name and role. Admin role required.
// @Tags users
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size (max 10000)"
// @Param query query string false "Name or email substring"
// @Param role query string false "Role filter"
// @Success 200 {object} search.Page[models.User]
// @Security BearerAuth
// @Router /users/search [get]
func (h *Handler) Search(c *gin.Context) {
	p := search.ParseParams(c, "id", "created_at", "email", "name", "role")

	q := h.db.Model(&models.User{})
	if v := c.Query("query"); v != "" {
		like := "%" + v + "%"
		q = q.Where("name LIKE ? OR email LIKE ?", like, like)
	}
	if v := c.Query("role"); v != "" {
		q = q.Where("role = ?", v)
	}
	if v := c.Query("unit"); v != "" {
		q = q.Where("unit = ?", v)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
		return
	}

	var rows []models.User
	if err := q.Order(p.Order()).Limit(p.PerPage).Offset(p.Offset()).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
		return
	}
	c.JSON(http.StatusOK, search.NewPage(rows, total, p))
}

// Get returns a single user
// @Summary Get a user
// @Description Get a user by ID. Admin role required.
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		}
		return
	}
	c.JSON(http.StatusOK, user)
}

// Update modifies a user's profile
// @Summary Update a user
// @Description Admins may update any user including their role. Other callers may only update their own profile and cannot change their role.
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "ID mismatch"
// @Failure 403 {object} map[string]string "Permission denied"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /users/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	caller, _ := auth.CurrentUser(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID != 0 && req.ID != uint(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID in body does not match URL"})
		return
	}

	if !caller.IsAdmin() {
		if caller.ID != uint(id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You may only update your own profile"})
			return
		}
		if req.Role != nil && models.Role(*req.Role) != caller.Role {
			c.JSON(http.StatusForbidden, gin.H{"error": "You may not change your own role"})
			return
		}
	}

	var user models.User
	if err := h.db.First(&user, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		}
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Unit != nil {
		user.Unit = *req.Unit
	}
	if req.Acclab != nil {
		user.Acclab = *req.Acclab
	}
	if req.Role != nil && caller.IsAdmin() {
		user.Role = models.Role(*req.Role)
	}

	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// Me returns the caller's profile
// @Summary Get current user's profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Security BearerAuth
// @Router /users/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, exists := auth.CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// RegisterRoutes registers user routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", auth.RequireAdmin(), h.Search)
	rg.GET("/me", h.Me)
	rg.GET("/:id", auth.RequireAdmin(), h.Get)
	rg.PUT("/:id", auth.RequireUser(), h.Update)
}
