package signals

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/groups"
	"github.com/undp-futures/ftss/pkg/ftss/models"
	"github.com/undp-futures/ftss/pkg/ftss/policy"
	"github.com/undp-futures/ftss/pkg/ftss/search"
	"github.com/undp-futures/ftss/pkg/ftss/storage"
)

// Handler handles signal requests
type Handler struct {
	db    *gorm.DB
	store storage.Store
}

// NewHandler creates a new signals handler
func NewHandler(db *gorm.DB, store storage.Store) *Handler {
	if store == nil {
		store = storage.Noop{}
	}
	return &Handler{db: db, store: store}
}

// CreateSignalRequest represents the request to create a signal
type CreateSignalRequest struct {
	Headline           string   `json:"headline" binding:"required"`
	Description        string   `json:"description"`
	Status             string   `json:"status"`
	CreatedFor         string   `json:"created_for"`
	URL                string   `json:"url"`
	Relevance          string   `json:"relevance"`
	Keywords           []string `json:"keywords"`
	Location           string   `json:"location"`
	Score              string   `json:"score"`
	SteepPrimary       string   `json:"steep_primary"`
	SteepSecondary     []string `json:"steep_secondary"`
	SignaturePrimary   string   `json:"signature_primary"`
	SignatureSecondary []string `json:"signature_secondary"`
	SDGs               []string `json:"sdgs"`
	Attachment         string   `json:"attachment"`
	ConnectedTrends    []uint   `json:"connected_trends"`
}

// UpdateSignalRequest represents a partial signal update. Only fields
// present in the request overwrite the stored value.
type UpdateSignalRequest struct {
	ID                 uint      `json:"id"`
	Headline           *string   `json:"headline"`
	Description        *string   `json:"description"`
	Status             *string   `json:"status"`
	CreatedFor         *string   `json:"created_for"`
	URL                *string   `json:"url"`
	Relevance          *string   `json:"relevance"`
	Keywords           *[]string `json:"keywords"`
	Location           *string   `json:"location"`
	Score              *string   `json:"score"`
	SteepPrimary       *string   `json:"steep_primary"`
	SteepSecondary     *[]string `json:"steep_secondary"`
	SignaturePrimary   *string   `json:"signature_primary"`
	SignatureSecondary *[]string `json:"signature_secondary"`
	SDGs               *[]string `json:"sdgs"`
	Attachment         *string   `json:"attachment"`
	ConnectedTrends    *[]uint   `json:"connected_trends"`
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signal ID"})
		return 0, false
	}
	return uint(id), true
}

// jsonArrayOverlap builds a LIKE predicate matching rows whose serialised
// string array contains the value
func jsonArrayOverlap(q *gorm.DB, column string, values []string) *gorm.DB {
	if len(values) == 0 {
		return q
	}
	overlap := q.Session(&gorm.Session{NewDB: true})
	cond := overlap.Where(column+" LIKE ?", "%\""+values[0]+"\"%")
	for _, v := range values[1:] {
		cond = cond.Or(column+" LIKE ?", "%\""+v+"\"%")
	}
	return q.Where(cond)
}

// Search returns a filtered, paginated page of signals
// @Summary Search signals
// @Description Search signals with facet filters and pagination. Results are filtered by the caller's role; total_count reflects the match count before that filtering.
// @Tags signals
// @Produce json
// @Param page query int false "Page number"
// @Param per_page query int false "Page size (max 10000)"
// @Param order_by query string false "Sort column"
// @Param direction query string false "asc or desc"
// @Param query query string false "Free text over headline, description, keywords and relevance"
// @Param statuses query []string false "Status filter"
// @Success 200 {object} search.Page[models.Signal]
// @Security BearerAuth
// @Router /signals/search [get]
func (h *Handler) Search(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	p := search.ParseParams(c, "created_at", "id", "modified_at", "headline", "status", "location", "score")

	q := h.db.Model(&models.Signal{})

	if statuses := c.QueryArray("statuses"); len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	if v := c.Query("created_by"); v != "" {
		q = q.Where("created_by = ?", v)
	}
	if v := c.Query("created_for"); v != "" {
		q = q.Where("created_for = ?", v)
	}
	if v := c.Query("unit"); v != "" {
		q = q.Where("created_unit = ?", v)
	}
	if v := c.Query("location"); v != "" {
		q = q.Where("location = ?", v)
	}
	if v := c.Query("score"); v != "" {
		q = q.Where("score = ?", v)
	}
	if v := c.Query("steep_primary"); v != "" {
		q = q.Where("steep_primary = ?", v)
	}
	if v := c.Query("signature_primary"); v != "" {
		q = q.Where("signature_primary = ?", v)
	}
	q = jsonArrayOverlap(q, "steep_secondary", c.QueryArray("steep_secondary"))
	q = jsonArrayOverlap(q, "signature_secondary", c.QueryArray("signature_secondary"))
	q = jsonArrayOverlap(q, "sdgs", c.QueryArray("sdgs"))
	if v := c.Query("query"); v != "" {
		like := "%" + v + "%"
		q = q.Where(
			"headline LIKE ? OR description LIKE ? OR keywords LIKE ? OR relevance LIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count signals"})
		return
	}

	var rows []models.Signal
	if err := q.Order(p.Order()).Limit(p.PerPage).Offset(p.Offset()).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search signals"})
		return
	}

	page := make([]*models.Signal, len(rows))
	for i := range rows {
		page[i] = &rows[i]
	}
	page = policy.FilterPage(user, page)

	if err := loadConnectedTrends(h.db, page); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load connections"})
		return
	}
	if err := loadFavourites(h.db, user, page); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load favourites"})
		return
	}

	data := make([]models.Signal, len(page))
	for i, s := range page {
		data[i] = *s
	}
	c.JSON(http.StatusOK, search.NewPage(data, total, p))
}

// Create submits a new signal
// @Summary Create a signal
// @Description Submit a new signal. The creator and their unit are stamped from the authenticated user.
// @Tags signals
// @Accept json
// @Produce json
// @Param request body CreateSignalRequest true "Signal details"
// @Success 201 {object} models.Signal
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /signals [post]
func (h *Handler) Create(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req CreateSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	signal := models.Signal{
		CreatedUnit: user.Unit,
		URL:         req.URL,
		Relevance:   req.Relevance,
		Keywords:    req.Keywords,
		Location:    req.Location,
		Score:       req.Score,
	}
	signal.Headline = req.Headline
	signal.Description = req.Description
	signal.CreatedBy = user.Email
	signal.CreatedFor = req.CreatedFor
	signal.ModifiedBy = user.Email
	signal.ModifiedAt = time.Now()
	signal.SteepPrimary = req.SteepPrimary
	signal.SteepSecondary = req.SteepSecondary
	signal.SignaturePrimary = req.SignaturePrimary
	signal.SignatureSecondary = req.SignatureSecondary
	signal.SDGs = req.SDGs
	signal.Status = models.StatusNew
	if req.Status != "" {
		signal.Status = models.Status(req.Status)
	}

	if err := h.db.Create(&signal).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create signal"})
		return
	}

	// Secondary effects never fail the write
	insertConnections(h.db, signal.ID, req.ConnectedTrends, user.Email)
	signal.ConnectedTrends = req.ConnectedTrends
	if signal.ConnectedTrends == nil {
		signal.ConnectedTrends = []uint{}
	}
	if req.Attachment != "" {
		url, err := h.store.UpdateImage(c.Request.Context(), signal.ID, attachmentFolder, req.Attachment)
		if err != nil {
			log.Printf("signals: uploading attachment for signal %d: %v", signal.ID, err)
		} else if url != "" {
			signal.Attachment = url
			h.db.Model(&models.Signal{ID: signal.ID}).Update("attachment", url)
		}
	}

	c.JSON(http.StatusCreated, signal)
}

// Get returns a single signal
// @Summary Get a signal
// @Description Get a signal by ID. Visitors may only read approved signals.
// @Tags signals
// @Produce json
// @Param id path int true "Signal ID"
// @Success 200 {object} models.Signal
// @Failure 403 {object} map[string]string "Not approved for public viewing"
// @Failure 404 {object} map[string]string "Signal not found"
// @Security BearerAuth
// @Router /signals/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var signal models.Signal
	if err := h.db.First(&signal, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Signal not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch signal"})
		}
		return
	}

	if !policy.CanView(user, &signal) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Signal is not approved for public viewing"})
		return
	}
	if !user.Role.IsRegular() {
		signal.Anonymise()
	}

	batch := []*models.Signal{&signal}
	if err := loadConnectedTrends(h.db, batch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load connections"})
		return
	}
	if err := loadFavourites(h.db, user, batch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load favourites"})
		return
	}

	c.JSON(http.StatusOK, signal)
}

// Update modifies a signal
// @Summary Update a signal
// @Description Update a signal. Only fields present in the request are changed. The caller must be staff, the creator, or a collaborator.
// @Tags signals
// @Accept json
// @Produce json
// @Param id path int true "Signal ID"
// @Param request body UpdateSignalRequest true "Fields to change"
// @Success 200 {object} models.Signal
// @Failure 400 {object} map[string]string "ID mismatch"
// @Failure 403 {object} map[string]string "No edit rights"
// @Failure 404 {object} map[string]string "Signal not found"
// @Security BearerAuth
// @Router /signals/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID != 0 && req.ID != id {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID in body does not match URL"})
		return
	}

	var signal models.Signal
	if err := h.db.First(&signal, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Signal not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch signal"})
		}
		return
	}

	canEdit, err := groups.CanUserEditSignal(h.db, id, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
		return
	}
	if !canEdit {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have edit rights on this signal"})
		return
	}

	if req.Headline != nil {
		signal.Headline = *req.Headline
	}
	if req.Description != nil {
		signal.Description = *req.Description
	}
	if req.Status != nil {
		signal.Status = models.Status(*req.Status)
	}
	if req.CreatedFor != nil {
		signal.CreatedFor = *req.CreatedFor
	}
	if req.URL != nil {
		signal.URL = *req.URL
	}
	if req.Relevance != nil {
		signal.Relevance = *req.Relevance
	}
	if req.Keywords != nil {
		signal.Keywords = *req.Keywords
	}
	if req.Location != nil {
		signal.Location = *req.Location
	}
	if req.Score != nil {
		signal.Score = *req.Score
	}
	if req.SteepPrimary != nil {
		signal.SteepPrimary = *req.SteepPrimary
	}
	if req.SteepSecondary != nil {
		signal.SteepSecondary = *req.SteepSecondary
	}
	if req.SignaturePrimary != nil {
		signal.SignaturePrimary = *req.SignaturePrimary
	}
	if req.SignatureSecondary != nil {
		signal.SignatureSecondary = *req.SignatureSecondary
	}
	if req.SDGs != nil {
		signal.SDGs = *req.SDGs
	}
	signal.ModifiedBy = user.Email
	signal.ModifiedAt = time.Now()

	if req.Attachment != nil {
		url, err := h.store.UpdateImage(c.Request.Context(), signal.ID, attachmentFolder, *req.Attachment)
		if err != nil {
			log.Printf("signals: updating attachment for signal %d: %v", signal.ID, err)
		} else {
			signal.Attachment = url
		}
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&signal).Error; err != nil {
			return err
		}
		if req.ConnectedTrends != nil {
			return replaceConnections(tx, signal.ID, *req.ConnectedTrends, user.Email)
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update signal"})
		return
	}

	batch := []*models.Signal{&signal}
	if err := loadConnectedTrends(h.db, batch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load connections"})
		return
	}
	c.JSON(http.StatusOK, signal)
}

// Delete removes a signal and all references to it
// @Summary Delete a signal
// @Description Delete a signal together with its connections, favourites, collaborator grants and group references.
// @Tags signals
// @Produce json
// @Param id path int true "Signal ID"
// @Success 200 {object} map[string]string "Signal deleted"
// @Failure 403 {object} map[string]string "No edit rights"
// @Failure 404 {object} map[string]string "Signal not found"
// @Security BearerAuth
// @Router /signals/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	id, ok := parseID(c)
	if !ok {
		return
	}

	var signal models.Signal
	if err := h.db.First(&signal, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Signal not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch signal"})
		}
		return
	}

	canEdit, err := groups.CanUserEditSignal(h.db, id, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve permissions"})
		return
	}
	if !canEdit {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have edit rights on this signal"})
		return
	}

	if err := DeleteSignal(c.Request.Context(), h.db, h.store, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete signal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signal deleted"})
}

// Me returns the caller's own signals
// @Summary Get current user's signals
// @Description Get the signals created by the caller, optionally filtered by status
// @Tags signals
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {array} models.Signal
// @Security BearerAuth
// @Router /signals/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	q := h.db.Where("created_by = ?", user.Email)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var rows []models.Signal
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch signals"})
		return
	}

	batch := make([]*models.Signal, len(rows))
	for i := range rows {
		batch[i] = &rows[i]
	}
	if err := loadConnectedTrends(h.db, batch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load connections"})
		return
	}
	if err := loadFavourites(h.db, user, batch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load favourites"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// RegisterRoutes registers signal routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.Search)
	rg.GET("/me", auth.RequireUser(), h.Me)
	rg.POST("", auth.RequireUser(), h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", auth.RequireUser(), h.Update)
	rg.DELETE("/:id", auth.RequireUser(), h.Delete)
	rg.GET("/:id/collaborators", auth.RequireUser(), h.ListCollaborators)
	rg.POST("/:id/collaborators", auth.RequireUser(), h.AddCollaborator)
	rg.DELETE("/:id/collaborators", auth.RequireUser(), h.RemoveCollaborator)
}
