package trends

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/models"
	"github.com/undp-futures/ftss/pkg/ftss/policy"
	"github.com/undp-futures/ftss/pkg/ftss/search"
	"github.com/undp-futures/ftss/pkg/ftss/storage"
)

// attachmentFolder is the blob store folder for trend images
const attachmentFolder = "trends"

// Handler handles trend requests
type Handler struct {
	db    *gorm.DB
	store storage.Store
}

// NewHandler creates a new trends handler
func NewHandler(db *gorm.DB, store storage.Store) *Handler {
	if store == nil {
		store = storage.Noop{}
	}
	return &Handler{db: db, store: store}
}

// CreateTrendRequest represents the request to create a trend
type CreateTrendRequest struct {
	Headline           string   `json:"headline" binding:"required"`
	Description        string   `json:"description"`
	Status             string   `json:"status"`
	CreatedFor         string   `json:"created_for"`
	AssignedTo         string   `json:"assigned_to"`
	TimeHorizon        string   `json:"time_horizon"`
	ImpactRating       string   `json:"impact_rating"`
	ImpactDescription  string   `json:"impact_description"`
	SteepPrimary       string   `json:"steep_primary"`
	SteepSecondary     []string `json:"steep_secondary"`
	SignaturePrimary   string   `json:"signature_primary"`
	SignatureSecondary []string `json:"signature_secondary"`
	SDGs               []string `json:"sdgs"`
	Attachment         string   `json:"attachment"`
}

// UpdateTrendRequest represents a partial trend update
type UpdateTrendRequest struct {
	ID                 uint      `json:"id"`
	Headline           *string   `json:"headline"`
	Description        *string   `json:"description"`
	Status             *string   `json:"status"`
	CreatedFor         *string   `json:"created_for"`
	AssignedTo         *string   `json:"assigned_to"`
	TimeHorizon        *string   `json:"time_horizon"`
	ImpactRating       *string   `json:"impact_rating"`
	ImpactDescription  *string   `json:"impact_description"`
	SteepPrimary       *string   `json:"steep_primary"`
	SteepSecondary     *[]string `json:"steep_secondary"`
	SignaturePrimary   *string   `json:"signature_primary"`
	SignatureSecondary *[]string `json:"signature_secondary"`
	SDGs               *[]string `json:"sdgs"`
	Attachment         *string   `json:"attachment"`
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trend ID"})
		return 0, false
	}
	return uint(id), true
}

// loadConnectedSignals fills ConnectedSignals for a batch of trends
func loadConnectedSignals(db *gorm.DB, trends []*models.Trend) error {
	if len(trends) == 0 {
		return nil
	}
	ids := make([]uint, len(trends))
	byID := make(map[uint]*models.Trend, len(trends))
	for i, tr := range trends {
		ids[i] = tr.ID
		byID[tr.ID] = tr
		tr.ConnectedSignals = []uint{}
	}
	var connections []models.Connection
	if err := db.Where("trend_id IN ?", ids).Order("signal_id").Find(&connections).Error; err != nil {
		return err
	}
	for _, conn := range connections {
		if tr, ok := byID[conn.TrendID]; ok {
			tr.ConnectedSignals = append(tr.ConnectedSignals, conn.SignalID)
		}
	}
	return nil
}

// Search returns a filtered, paginated page of trends
// @Summary Search trends
// @Description Search trends with facet filters and pagination. Results are filtered by the caller's role; total_count reflects the match count before that filtering.
// @Tags trends
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size (max 10000)"
// @Param query query string false "Free text over headline and description"
// @Param statuses query []string false "Status filter"
// @Success 200 {object} search.Page[models.Trend]
// @Security BearerAuth
// @Router /trends/search [get]
func (h *Handler) Search(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	p := search.ParseParams(c, "created_at", "id", "modified_at", "headline", "status", "impact_rating", "time_horizon")

	q := h.db.Model(&models.Trend{})

	if statuses := c.QueryArray("statuses"); len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if v := c.Query("created_by"); v != "" {
		q = q.Where("created_by = ?", v)
	}
	if v := c.Query("created_for"); v != "" {
		q = q.Where("created_for = ?", v)
	}
	if v := c.Query("assigned_to"); v != "" {
		q = q.Where("assigned_to = ?", v)
	}
	if v := c.Query("time_horizon"); v != "" {
		q = q.Where("time_horizon = ?", v)
	}
	if v := c.Query("impact_rating"); v != "" {
		q = q.Where("impact_rating = ?", v)
	}
	if v := c.Query("steep_primary"); v != "" {
		q = q.Where("steep_primary = ?", v)
	}
	if v := c.Query("signature_primary"); v != "" {
		q = q.Where("signature_primary = ?", v)
	}
	if v := c.Query("query"); v != "" {
		like := "%" + v + "%"
		q = q.Where("headline LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count trends"})
		return
	}

	var rows []models.Trend
	if err := q.Order(p.Order()).Limit(p.PerPage).Offset(p.Offset()).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search trends"})
		return
	}

	page := make([]*models.Trend, len(rows))
	for i := range rows {
		page[i] = &rows[i]
	}
	page = policy.FilterPage(user, page)

	if err := loadConnectedSignals(h.db, page); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load connections"})
		return
	}

	data := make([]models.Trend, len(page))
	for i, tr := range page {
		data[i] = *tr
	}
	c.JSON(http.StatusOK, search.NewPage(data, total, p))
}

// Create adds a new trend
// @Summary Create a trend
// @Description Create a trend. Curator or admin role required.
// @Tags trends
// @Accept json
// @Produce json
// @Param request body CreateTrendRequest true "Trend details"
// @Success 201 {object} models.Trend
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /trends [post]
func (h *Handler) Create(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req CreateTrendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trend := models.Trend{
		AssignedTo:        req.AssignedTo,
		TimeHorizon:       req.TimeHorizon,
		ImpactRating:      req.ImpactRating,
		ImpactDescription: req.ImpactDescription,
	}
	trend.Headline = req.Headline
	trend.Description = req.Description
	trend.CreatedBy = user.Email
	trend.CreatedFor = req.CreatedFor
	trend.ModifiedBy = user.Email
	trend.ModifiedAt = time.Now()
	trend.SteepPrimary = req.SteepPrimary
	trend.SteepSecondary = req.SteepSecondary
	trend.SignaturePrimary = req.SignaturePrimary
	trend.SignatureSecondary = req.SignatureSecondary
	trend.SDGs = req.SDGs
	trend.Status = models.StatusNew
	if req.Status != "" {
		trend.Status = models.Status(req.Status)
	}

	if err := h.db.Create(&trend).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trend"})
		return
	}

	if req.Attachment != "" {
		url, err := h.store.UpdateImage(c.Request.Context(), trend.ID, attachmentFolder, req.Attachment)
		if err != nil {
			log.Printf("trends: uploading attachment for trend %d: %v", trend.ID, err)
		} else if url != "" {
			trend.Attachment = url
			h.db.Model(&models.Trend{ID: trend.ID}).Update("attachment", url)
		}
	}

	trend.ConnectedSignals = []uint{}
	c.JSON(http.StatusCreated, trend)
}

// Get returns a single trend
// @Summary Get a trend
// @Description Get a trend by ID. Visitors may only read approved trends.
// @Tags trends
// @Produce json
// @Param id path int true "Trend ID"
// @Success 200 {object} models.Trend
// @Failure 403 {object} map[string]string "Not approved for public viewing"
// @Failure 404 {object} map[string]string "Trend not found"
// @Security BearerAuth
// @Router /trends/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var trend models.Trend
	if err := h.db.First(&trend, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trend not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trend"})
		}
		return
	}

	if !policy.CanView(user, &trend) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Trend is not approved for public viewing"})
		return
	}
	if !user.Role.IsRegular() {
		trend.Anonymise()
	}

	if err := loadConnectedSignals(h.db, []*models.Trend{&trend}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load connections"})
		return
	}
	c.JSON(http.StatusOK, trend)
}

// Update modifies a trend
// @Summary Update a trend
// @Description Update a trend. Only fields present in the request are changed. Curator or admin role required.
// @Tags trends
// @Accept json
// @Produce json
// @Param id path int true "Trend ID"
// @Param request body UpdateTrendRequest true "Fields to change"
// @Success 200 {object} models.Trend
// @Failure 400 {object} map[string]string "ID mismatch"
// @Failure 404 {object} map[string]string "Trend not found"
// @Security BearerAuth
// @Router /trends/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateTrendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID != 0 && req.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID in body does not match URL"})
		return
	}

	var trend models.Trend
	if err := h.db.First(&trend, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trend not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trend"})
		}
		return
	}

	if req.Headline != nil {
		trend.Headline = *req.Headline
	}
	if req.Description != nil {
		trend.Description = *req.Description
	}
	if req.Status != nil {
		trend.Status = models.Status(*req.Status)
	}
	if req.CreatedFor != nil {
		trend.CreatedFor = *req.CreatedFor
	}
	if req.AssignedTo != nil {
		trend.AssignedTo = *req.AssignedTo
	}
	if req.TimeHorizon != nil {
		trend.TimeHorizon = *req.TimeHorizon
	}
	if req.ImpactRating != nil {
		trend.ImpactRating = *req.ImpactRating
	}
	if req.ImpactDescription != nil {
		trend.ImpactDescription = *req.ImpactDescription
	}
	if req.SteepPrimary != nil {
		trend.SteepPrimary = *req.SteepPrimary
	}
	if req.SteepSecondary != nil {
		trend.SteepSecondary = *req.SteepSecondary
	}
	if req.SignaturePrimary != nil {
		trend.SignaturePrimary = *req.SignaturePrimary
	}
	if req.SignatureSecondary != nil {
		trend.SignatureSecondary = *req.SignatureSecondary
	}
	if req.SDGs != nil {
		trend.SDGs = *req.SDGs
	}
	trend.ModifiedBy = user.Email
	trend.ModifiedAt = time.Now()

	if req.Attachment != nil {
		url, err := h.store.UpdateImage(c.Request.Context(), trend.ID, attachmentFolder, *req.Attachment)
		if err != nil {
			log.Printf("trends: updating attachment for trend %d: %v", trend.ID, err)
		} else {
			trend.Attachment = url
		}
	}

	if err := h.db.Save(&trend).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trend"})
		return
	}

	if err := loadConnectedSignals(h.db, []*models.Trend{&trend}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load connections"})
		return
	}
	c.JSON(http.StatusOK, trend)
}

// Delete removes a trend and its signal connections
// @Summary Delete a trend
// @Description Delete a trend together with its signal connections. Curator or admin role required.
// @Tags trends
// @Produce json
// @Param id path int true "Trend ID"
// @Success 200 {object} map[string]string "Trend deleted"
// @Failure 404 {object} map[string]string "Trend not found"
// @Security BearerAuth
// @Router /trends/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var trend models.Trend
	if err := h.db.First(&trend, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trend not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trend"})
		}
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("trend_id = ?", id).Delete(&models.Connection{}).Error; err != nil {
			return err
		}
		return tx.Delete(&trend).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trend"})
		return
	}

	if err := h.store.DeleteImage(c.Request.Context(), id, attachmentFolder); err != nil {
		log.Printf("trends: deleting attachment for trend %d: %v", id, err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Trend deleted"})
}

// Me returns the trends created by the caller
// @Summary Get current user's trends
// @Tags trends
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {array} models.Trend
// @Security BearerAuth
// @Router /trends/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	q := h.db.Where("created_by = ?", user.Email)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var rows []models.Trend
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trends"})
		return
	}

	batch := make([]*models.Trend, len(rows))
	for i := range rows {
		batch[i] = &rows[i]
	}
	if err := loadConnectedSignals(h.db, batch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load connections"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// RegisterRoutes registers trend routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.Search)
	rg.GET("/me", auth.RequireUser(), h.Me)
	rg.POST("", auth.RequireCurator(), h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", auth.RequireCurator(), h.Update)
	rg.DELETE("/:id", auth.RequireCurator(), h.Delete)
}
