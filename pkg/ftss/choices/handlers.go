package choices

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/models"
)

// Handler serves the static choice lists used by entry forms
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new choices handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func steepValues() []string {
	return []string{
		models.SteepSocial,
		models.SteepTechnological,
		models.SteepEconomic,
		models.SteepEnvironmental,
		models.SteepPolitical,
		models.SteepValues,
	}
}

func signatureValues() []string {
	return []string{
		models.SignaturePoverty,
		models.SignatureGovernance,
		models.SignatureResilience,
		models.SignatureEnvironment,
		models.SignatureEnergy,
		models.SignatureGender,
		models.SignatureInnovation,
		models.SignatureDigitalisation,
		models.SignatureFinancing,
	}
}

func horizonValues() []string {
	return []string{models.HorizonShort, models.HorizonMedium, models.HorizonLong}
}

func ratingValues() []string {
	return []string{models.RatingLow, models.RatingModerate, models.RatingHigh}
}

func statusValues() []string {
	return []string{
		string(models.StatusDraft),
		string(models.StatusNew),
		string(models.StatusApproved),
		string(models.StatusArchived),
	}
}

func roleValues() []string {
	return []string{
		string(models.RoleAdmin),
		string(models.RoleCurator),
		string(models.RoleUser),
		string(models.RoleVisitor),
	}
}

func (h *Handler) unitNames() ([]string, error) {
	var names []string
	err := h.db.Model(&models.Unit{}).Order("name").Pluck("name", &names).Error
	return names, err
}

func (h *Handler) locationNames() ([]string, error) {
	var names []string
	err := h.db.Model(&models.Location{}).Order("name").Pluck("name", &names).Error
	return names, err
}

func (h *Handler) regionNames() ([]string, error) {
	var names []string
	err := h.db.Model(&models.Location{}).Distinct("region").Where("region <> ''").Order("region").Pluck("region", &names).Error
	return names, err
}

// List returns every choice list in one response
// @Summary List all choices
// @Description Get the value lists used by signal and trend entry forms
// @Tags choices
// @Produce json
// @Success 200 {object} map[string][]string
// @Security BearerAuth
// @Router /choices [get]
func (h *Handler) List(c *gin.Context) {
	units, err := h.unitNames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch choices"})
		return
	}
	locations, err := h.locationNames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch choices"})
		return
	}
	regions, err := h.regionNames()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch choices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"steep":      steepValues(),
		"signatures": signatureValues(),
		"horizons":   horizonValues(),
		"ratings":    ratingValues(),
		"statuses":   statusValues(),
		"roles":      roleValues(),
		"units":      units,
		"locations":  locations,
		"regions":    regions,
	})
}

// Get returns a single choice list by name
// @Summary Get one choice list
// @Description Get a single value list by name (steep, signatures, horizons, ratings, statuses, roles, units, locations, regions)
// @Tags choices
// @Produce json
// @Param name path string true "Choice list name"
// @Success 200 {array} string
// @Failure 404 {object} map[string]string "Unknown choice list"
// @Security BearerAuth
// @Router /choices/{name} [get]
func (h *Handler) Get(c *gin.Context) {
	var (
		values []string
		err    error
	)

	switch c.Param("name") {
	case "steep":
		values = steepValues()
	case "signatures":
		values = signatureValues()
	case "horizons":
		values = horizonValues()
	case "ratings":
		values = ratingValues()
	case "statuses":
		values = statusValues()
	case "roles":
		values = roleValues()
	case "units":
		values, err = h.unitNames()
	case "locations":
		values, err = h.locationNames()
	case "regions":
		values, err = h.regionNames()
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown choice list"})
		return
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch choices"})
		return
	}
	c.JSON(http.StatusOK, values)
}

// RegisterRoutes registers choice routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:name", h.Get)
}
