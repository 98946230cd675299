package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
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

func createTestUser(t *testing.T, db *gorm.DB, email string, role models.Role) models.User {
	hash, err := HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	user := models.User{Email: email, PasswordHash: hash, Name: "Test User", Role: role}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	m := NewMiddleware(db, nil, nil)
	handler.RegisterRoutes(r.Group("/auth"), m)
	return r
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should return true for correct password")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should return false for incorrect password")
	}
}

func TestJWTToken(t *testing.T) {
	token, err := GenerateToken(1, "test@example.com", models.RoleCurator)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("Expected UserID 1, got %d", claims.UserID)
	}

	if claims.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", claims.Email)
	}

	if claims.Role != models.RoleCurator {
		t.Errorf("Expected role Curator, got %s", claims.Role)
	}
}

func TestTokenDurationFromEnv(t *testing.T) {
	t.Setenv("FTSS_JWT_TTL", "1h")

	token, err := GenerateToken(1, "test@example.com", models.RoleUser)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	// Timestamps are truncated to whole seconds in the encoded token.
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if lifetime < time.Hour-2*time.Second || lifetime > time.Hour+2*time.Second {
		t.Errorf("Expected 1h token lifetime, got %s", lifetime)
	}
}

func TestInvalidToken(t *testing.T) {
	_, err := ValidateToken("invalid-token")
	if err == nil {
		t.Error("Expected error for invalid token")
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "test@example.com", models.RoleUser)

	body := LoginRequest{Email: "test@example.com", Password: "password123"}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Token == "" {
		t.Error("Expected token in response")
	}

	if response.User.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", response.User.Email)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)
	createTestUser(t, db, "test@example.com", models.RoleUser)

	body := LoginRequest{Email: "test@example.com", Password: "wrongpassword"}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestLoginPasswordlessAccount(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	user := models.User{Email: "sso@example.com", Role: models.RoleUser}
	db.Create(&user)

	body := LoginRequest{Email: "sso@example.com", Password: "anything"}
	jsonBody, _ := json.Marshal(body)

	req, _ := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()

	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for passwordless account, got %d", resp.Code)
	}
}

func TestAuthenticateAccessTokenHeader(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "test@example.com", models.RoleCurator)

	token, err := GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	m := NewMiddleware(db, nil, nil)
	r.GET("/whoami", m.Authenticate(), func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, u)
	})

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("access_token", token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var got models.User
	json.Unmarshal(resp.Body.Bytes(), &got)
	if got.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", got.Email)
	}
	if got.Role != models.RoleCurator {
		t.Errorf("Expected role Curator, got %s", got.Role)
	}
}

func TestAuthenticateBearerFallback(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "test@example.com", models.RoleUser)

	token, _ := GenerateToken(user.ID, user.Email, user.Role)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	m := NewMiddleware(db, nil, nil)
	r.GET("/whoami", m.Authenticate(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.Code)
	}
}

func TestAuthenticateMissingToken(t *testing.T) {
	db := setupTestDB(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	m := NewMiddleware(db, nil, nil)
	r.GET("/whoami", m.Authenticate(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req, _ := http.NewRequest("GET", "/whoami", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestAPIKeyGrantsVisitor(t *testing.T) {
	db := setupTestDB(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	m := NewMiddleware(db, nil, nil)
	m.apiKey = "shared-key"

	r.GET("/whoami", m.Authenticate(), func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, u)
	})

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("access_token", "shared-key")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var got models.User
	json.Unmarshal(resp.Body.Bytes(), &got)
	if got.Role != models.RoleVisitor {
		t.Errorf("Expected Visitor role for API key, got %s", got.Role)
	}
	if got.Email != models.AnonymousEmail {
		t.Errorf("Expected anonymous email, got %s", got.Email)
	}
}

func TestAPIKeyLocalModeGrantsAdmin(t *testing.T) {
	db := setupTestDB(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	m := NewMiddleware(db, nil, nil)
	m.apiKey = "shared-key"
	m.local = true

	r.GET("/whoami", m.Authenticate(), func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, u)
	})

	req, _ := http.NewRequest("GET", "/whoami", nil)
	req.Header.Set("access_token", "shared-key")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var got models.User
	json.Unmarshal(resp.Body.Bytes(), &got)
	if got.Role != models.RoleAdmin {
		t.Errorf("Expected Admin role in local mode, got %s", got.Role)
	}
}

func TestRequireCurator(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		role models.Role
		want int
	}{
		{models.RoleAdmin, http.StatusOK},
		{models.RoleCurator, http.StatusOK},
		{models.RoleUser, http.StatusForbidden},
		{models.RoleVisitor, http.StatusForbidden},
	}

	for _, tc := range cases {
		r := gin.New()
		r.GET("/staff", func(c *gin.Context) {
			c.Set(ContextKeyUser, models.User{Email: "x@example.com", Role: tc.role})
		}, RequireCurator(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest("GET", "/staff", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)

		if resp.Code != tc.want {
			t.Errorf("Role %s: expected status %d, got %d", tc.role, tc.want, resp.Code)
		}
	}
}

func TestTokenCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewTokenCache(client, time.Minute)

	ctx := context.Background()

	if _, ok := cache.GetUserID(ctx, "some-token"); ok {
		t.Error("Expected cache miss for unknown token")
	}

	cache.SetUserID(ctx, "some-token", 42)

	id, ok := cache.GetUserID(ctx, "some-token")
	if !ok {
		t.Fatal("Expected cache hit after SetUserID")
	}
	if id != 42 {
		t.Errorf("Expected user ID 42, got %d", id)
	}

	mr.FastForward(2 * time.Minute)

	if _, ok := cache.GetUserID(ctx, "some-token"); ok {
		t.Error("Expected cache miss after TTL expiry")
	}
}

func TestNilTokenCache(t *testing.T) {
	var cache *TokenCache

	cache.SetUserID(context.Background(), "tok", 1)
	if _, ok := cache.GetUserID(context.Background(), "tok"); ok {
		t.Error("Nil cache should always miss")
	}
}
