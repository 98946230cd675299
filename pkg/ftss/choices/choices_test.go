package choices

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(db).RegisterRoutes(r.Group("/choices"))
	return r
}

func TestListChoices(t *testing.T) {
	db := setupTestDB(t)
	if err := Seed(db, DefaultUnits(), []models.Location{
		{Name: "Kenya", Region: "Africa"},
		{Name: "Brazil", Region: "Latin America"},
	}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/choices", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var got map[string][]string
	json.Unmarshal(resp.Body.Bytes(), &got)

	if len(got["steep"]) != 6 {
		t.Errorf("Expected 6 steep values, got %d", len(got["steep"]))
	}
	if len(got["signatures"]) != 9 {
		t.Errorf("Expected 9 signature values, got %d", len(got["signatures"]))
	}
	if len(got["units"]) != 6 {
		t.Errorf("Expected 6 units, got %d", len(got["units"]))
	}
	if len(got["locations"]) != 2 {
		t.Errorf("Expected 2 locations, got %d", len(got["locations"]))
	}
}

func TestGetChoiceList(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/choices/horizons", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var got []string
	json.Unmarshal(resp.Body.Bytes(), &got)
	if len(got) != 3 || got[0] != models.HorizonShort {
		t.Errorf("Unexpected horizons list: %v", got)
	}
}

func TestGetUnknownChoiceList(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/choices/nonsense", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	units := DefaultUnits()
	if err := Seed(db, units, nil); err != nil {
		t.Fatalf("First seed failed: %v", err)
	}
	if err := Seed(db, DefaultUnits(), nil); err != nil {
		t.Fatalf("Second seed failed: %v", err)
	}

	var count int64
	db.Model(&models.Unit{}).Count(&count)
	if count != int64(len(units)) {
		t.Errorf("Expected %d units after reseeding, got %d", len(units), count)
	}
}
