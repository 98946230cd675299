package trends

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/models"
	"github.com/undp-futures/ftss/pkg/ftss/search"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestTrend(t *testing.T, db *gorm.DB, creator, headline string, status models.Status) models.Trend {
	trend := models.Trend{}
	trend.Headline = headline
	trend.CreatedBy = creator
	trend.ModifiedBy = creator
	trend.Status = status
	if err := db.Create(&trend).Error; err != nil {
		t.Fatalf("Failed to create test trend: %v", err)
	}
	return trend
}

func setupTestRouter(db *gorm.DB, user models.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextKeyUser, user)
	})
	NewHandler(db, nil).RegisterRoutes(r.Group("/trends"))
	return r
}

func TestCreateTrendRequiresCurator(t *testing.T) {
	db := setupTestDB(t)
	user := models.User{ID: 1, Email: "user@example.com", Role: models.RoleUser}
	router := setupTestRouter(db, user)

	body, _ := json.Marshal(CreateTrendRequest{Headline: "Urbanisation"})
	req, _ := http.NewRequest("POST", "/trends", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for regular user, got %d", resp.Code)
	}
}

func TestCreateTrend(t *testing.T) {
	db := setupTestDB(t)
	curator := models.User{ID: 1, Email: "curator@example.com", Role: models.RoleCurator}
	router := setupTestRouter(db, curator)

	body, _ := json.Marshal(CreateTrendRequest{
		Headline:     "Ageing societies",
		TimeHorizon:  models.HorizonMedium,
		ImpactRating: models.RatingHigh,
	})
	req, _ := http.NewRequest("POST", "/trends", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var trend models.Trend
	json.Unmarshal(resp.Body.Bytes(), &trend)
	if trend.CreatedBy != "curator@example.com" {
		t.Errorf("Expected created_by curator@example.com, got %s", trend.CreatedBy)
	}
	if trend.TimeHorizon != models.HorizonMedium {
		t.Errorf("Expected time horizon %q, got %q", models.HorizonMedium, trend.TimeHorizon)
	}
}

func TestGetTrendVisitorGate(t *testing.T) {
	db := setupTestDB(t)
	approved := createTestTrend(t, db, "curator@example.com", "Approved", models.StatusApproved)
	pending := createTestTrend(t, db, "curator@example.com", "Pending", models.StatusNew)

	visitor := models.User{Email: models.AnonymousEmail, Role: models.RoleVisitor}
	router := setupTestRouter(db, visitor)

	req, _ := http.NewRequest("GET", fmt.Sprintf("/trends/%d", approved.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 for approved trend, got %d", resp.Code)
	}

	req, _ = http.NewRequest("GET", fmt.Sprintf("/trends/%d", pending.ID), nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for non-approved trend, got %d", resp.Code)
	}
}

func TestSearchTrendsCuratorSeesNonDrafts(t *testing.T) {
	db := setupTestDB(t)
	createTestTrend(t, db, "other@example.com", "Their draft", models.StatusDraft)
	createTestTrend(t, db, "curator@example.com", "My draft", models.StatusDraft)
	createTestTrend(t, db, "other@example.com", "New one", models.StatusNew)

	curator := models.User{ID: 1, Email: "curator@example.com", Role: models.RoleCurator}
	router := setupTestRouter(db, curator)

	req, _ := http.NewRequest("GET", "/trends/search", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var page search.Page[models.Trend]
	json.Unmarshal(resp.Body.Bytes(), &page)

	if page.TotalCount != 3 {
		t.Errorf("Expected total_count 3, got %d", page.TotalCount)
	}
	if len(page.Data) != 2 {
		t.Fatalf("Expected 2 visible trends, got %d", len(page.Data))
	}
	for _, tr := range page.Data {
		if tr.Status == models.StatusDraft && tr.CreatedBy != curator.Email {
			t.Errorf("Curator should not see others' drafts")
		}
	}
}

func TestUpdateTrendPartial(t *testing.T) {
	db := setupTestDB(t)
	trend := createTestTrend(t, db, "curator@example.com", "Original", models.StatusNew)
	trend.ImpactRating = models.RatingLow
	db.Save(&trend)

	curator := models.User{ID: 1, Email: "curator@example.com", Role: models.RoleCurator}
	router := setupTestRouter(db, curator)

	newStatus := string(models.StatusApproved)
	body, _ := json.Marshal(UpdateTrendRequest{Status: &newStatus})
	req, _ := http.NewRequest("PUT", fmt.Sprintf("/trends/%d", trend.ID), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var got models.Trend
	db.First(&got, trend.ID)
	if got.Status != models.StatusApproved {
		t.Errorf("Status should be updated, got %s", got.Status)
	}
	if got.ImpactRating != models.RatingLow {
		t.Errorf("Omitted field should be unchanged, got %s", got.ImpactRating)
	}
}

func TestUpdateTrendIDMismatch(t *testing.T) {
	db := setupTestDB(t)
	trend := createTestTrend(t, db, "curator@example.com", "Original", models.StatusNew)

	curator := models.User{ID: 1, Email: "curator@example.com", Role: models.RoleCurator}
	router := setupTestRouter(db, curator)

	body, _ := json.Marshal(UpdateTrendRequest{ID: trend.ID + 5})
	req, _ := http.NewRequest("PUT", fmt.Sprintf("/trends/%d", trend.ID), bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestDeleteTrendCascadesConnections(t *testing.T) {
	db := setupTestDB(t)
	trend := createTestTrend(t, db, "curator@example.com", "Doomed", models.StatusApproved)

	signal := models.Signal{}
	signal.Headline = "Connected signal"
	db.Create(&signal)
	db.Create(&models.Connection{SignalID: signal.ID, TrendID: trend.ID})

	curator := models.User{ID: 1, Email: "curator@example.com", Role: models.RoleCurator}
	router := setupTestRouter(db, curator)

	req, _ := http.NewRequest("DELETE", fmt.Sprintf("/trends/%d", trend.ID), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var count int64
	db.Model(&models.Connection{}).Where("trend_id = ?", trend.ID).Count(&count)
	if count != 0 {
		t.Error("Connections should be deleted with the trend")
	}

	db.Model(&models.Signal{}).Where("id = ?", signal.ID).Count(&count)
	if count != 1 {
		t.Error("The connected signal itself should survive")
	}
}

func TestSearchTrendsIncludesConnections(t *testing.T) {
	db := setupTestDB(t)
	trend := createTestTrend(t, db, "curator@example.com", "Networked", models.StatusApproved)

	signal := models.Signal{}
	signal.Headline = "Signal"
	db.Create(&signal)
	db.Create(&models.Connection{SignalID: signal.ID, TrendID: trend.ID})

	admin := models.User{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin}
	router := setupTestRouter(db, admin)

	req, _ := http.NewRequest("GET", "/trends/search", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var page search.Page[models.Trend]
	json.Unmarshal(resp.Body.Bytes(), &page)
	if len(page.Data) != 1 {
		t.Fatalf("Expected 1 trend, got %d", len(page.Data))
	}
	if len(page.Data[0].ConnectedSignals) != 1 || page.Data[0].ConnectedSignals[0] != signal.ID {
		t.Errorf("Expected connected signal %d, got %v", signal.ID, page.Data[0].ConnectedSignals)
	}
}
