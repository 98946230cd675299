package favourites

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/models"
)

// Handler handles signal favourite requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new favourites handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// Toggle flips the favourite state of a signal for the caller
// @Summary Toggle a favourite
// @Description Favourite a signal, or unfavourite it if it already is one
// @Tags favourites
// @Produce json
// @Param signalID path int true "Signal ID"
// @Success 200 {object} map[string]string "created or deleted"
// @Failure 404 {object} map[string]string "Signal not found"
// @Security BearerAuth
// @Router /favourites/{signalID} [post]
func (h *Handler) Toggle(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	signalID, err := strconv.ParseUint(c.Param("signalID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signal ID"})
		return
	}

	var count int64
	if err := h.db.Model(&models.Signal{}).Where("id = ?", uint(signalID)).Count(&count).Error; err != nil || count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Signal not found"})
		return
	}

	var existing models.Favourite
	err = h.db.Where("user_id = ? AND signal_id = ?", user.ID, uint(signalID)).First(&existing).Error
	switch {
	case err == nil:
		if err := h.db.Delete(&existing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove favourite"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	case err == gorm.ErrRecordNotFound:
		favourite := models.Favourite{UserID: user.ID, SignalID: uint(signalID)}
		if err := h.db.Create(&favourite).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add favourite"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "created"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle favourite"})
	}
}

// List returns the caller's favourited signals
// @Summary List favourites
// @Description Get the signals the caller has favourited, newest favourite first
// @Tags favourites
// @Produce json
// @Success 200 {array} models.Signal
// @Security BearerAuth
// @Router /favourites [get]
func (h *Handler) List(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var favourites []models.Favourite
	if err := h.db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&favourites).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch favourites"})
		return
	}
	if len(favourites) == 0 {
		c.JSON(http.StatusOK, []models.Signal{})
		return
	}

	ids := make([]uint, len(favourites))
	for i, f := range favourites {
		ids[i] = f.SignalID
	}

	var signals []models.Signal
	if err := h.db.Where("id IN ?", ids).Find(&signals).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch signals"})
		return
	}

	// Preserve favourite ordering
	byID := make(map[uint]models.Signal, len(signals))
	for _, s := range signals {
		s.Favorite = true
		byID[s.ID] = s
	}
	ordered := make([]models.Signal, 0, len(signals))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			ordered = append(ordered, s)
		}
	}
	c.JSON(http.StatusOK, ordered)
}

// RegisterRoutes registers favourite routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", auth.RequireUser(), h.List)
	rg.POST("/:signalID", auth.RequireUser(), h.Toggle)
}
