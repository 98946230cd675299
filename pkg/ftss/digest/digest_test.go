package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/models"
)

// recorderSender captures sent emails for assertions
type recorderSender struct {
	to      []string
	subject string
	body    string
}

func (r *recorderSender) Send(ctx context.Context, to []string, subject, body, contentType string) error {
	r.to = to
	r.subject = subject
	r.body = body
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createSignalAt(t *testing.T, db *gorm.DB, headline string, status models.Status, createdAt time.Time) {
	signal := models.Signal{CreatedAt: createdAt}
	signal.Headline = headline
	signal.Status = status
	if err := db.Create(&signal).Error; err != nil {
		t.Fatalf("Failed to create signal: %v", err)
	}
}

func TestRecentSignalsWindow(t *testing.T) {
	db := setupTestDB(t)
	createSignalAt(t, db, "Fresh", models.StatusNew, time.Now().AddDate(0, 0, -1))
	createSignalAt(t, db, "Stale", models.StatusNew, time.Now().AddDate(0, 0, -30))
	createSignalAt(t, db, "Fresh but approved", models.StatusApproved, time.Now().AddDate(0, 0, -1))

	service := NewService(db, &recorderSender{})
	signals, err := service.RecentSignals([]models.Status{models.StatusNew}, 7, 100)
	if err != nil {
		t.Fatalf("RecentSignals failed: %v", err)
	}
	if len(signals) != 1 || signals[0].Headline != "Fresh" {
		t.Errorf("Expected only the fresh new signal, got %+v", signals)
	}
}

func TestRecipientsAreStaffOnly(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&models.User{Email: "admin@example.com", Role: models.RoleAdmin})
	db.Create(&models.User{Email: "curator@example.com", Role: models.RoleCurator})
	db.Create(&models.User{Email: "user@example.com", Role: models.RoleUser})

	service := NewService(db, &recorderSender{})
	recipients, err := service.Recipients()
	if err != nil {
		t.Fatalf("Recipients failed: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("Expected 2 recipients, got %v", recipients)
	}
	for _, r := range recipients {
		if r == "user@example.com" {
			t.Error("Regular users should not receive the digest")
		}
	}
}

func TestBuildDigestEscapesContent(t *testing.T) {
	signal := models.Signal{}
	signal.Headline = "Solar <script>alert(1)</script>"
	signal.CreatedBy = "user@example.com"
	signal.Description = "A & B"

	subject, body := BuildDigest("Weekly digest", []models.Signal{signal})

	if subject != "Weekly digest: 1 signals" {
		t.Errorf("Unexpected subject %q", subject)
	}
	if strings.Contains(body, "<script>") {
		t.Error("Headline should be HTML-escaped")
	}
	if !strings.Contains(body, "A &amp; B") {
		t.Error("Description should be HTML-escaped")
	}
	if !strings.Contains(body, "user@example.com") {
		t.Error("Body should mention the submitter")
	}
}

func TestSendDraftDigest(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&models.User{Email: "curator@example.com", Role: models.RoleCurator})
	createSignalAt(t, db, "Pending review", models.StatusDraft, time.Now())

	rec := &recorderSender{}
	service := NewService(db, rec)

	if err := service.SendDraftDigest(context.Background()); err != nil {
		t.Fatalf("SendDraftDigest failed: %v", err)
	}

	if len(rec.to) != 1 || rec.to[0] != "curator@example.com" {
		t.Errorf("Expected digest sent to curator, got %v", rec.to)
	}
	if !strings.Contains(rec.body, "Pending review") {
		t.Error("Digest body should contain the draft headline")
	}
}

func TestSendDigestNoRecipients(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, &recorderSender{})

	if err := service.SendWeeklyDigest(context.Background()); err == nil {
		t.Error("Expected error when no staff exist")
	}
}

func TestDigestEndpointsRequireAdmin(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderSender{}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextKeyUser, models.User{Email: "curator@example.com", Role: models.RoleCurator})
	})
	NewHandler(db, rec).RegisterRoutes(r.Group("/email"))

	req, _ := http.NewRequest("POST", "/email/digest", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for curator, got %d", resp.Code)
	}
}

func TestSendEndpoint(t *testing.T) {
	db := setupTestDB(t)
	rec := &recorderSender{}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextKeyUser, models.User{Email: "admin@example.com", Role: models.RoleAdmin})
	})
	NewHandler(db, rec).RegisterRoutes(r.Group("/email"))

	body, _ := json.Marshal(SendRequest{
		To:      []string{"someone@example.com"},
		Subject: "Hello",
		Body:    "<p>Hi</p>",
	})
	req, _ := http.NewRequest("POST", "/email/send", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if rec.subject != "Hello" {
		t.Errorf("Expected subject Hello, got %s", rec.subject)
	}
}
