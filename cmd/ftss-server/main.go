package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/undp-futures/ftss/pkg/ftss/auth"
	"github.com/undp-futures/ftss/pkg/ftss/choices"
	"github.com/undp-futures/ftss/pkg/ftss/database"
	"github.com/undp-futures/ftss/pkg/ftss/digest"
	"github.com/undp-futures/ftss/pkg/ftss/email"
	"github.com/undp-futures/ftss/pkg/ftss/favourites"
	"github.com/undp-futures/ftss/pkg/ftss/groups"
	"github.com/undp-futures/ftss/pkg/ftss/models"
	"github.com/undp-futures/ftss/pkg/ftss/signals"
	"github.com/undp-futures/ftss/pkg/ftss/storage"
	"github.com/undp-futures/ftss/pkg/ftss/trends"
	"github.com/undp-futures/ftss/pkg/ftss/users"
)

// @title Future Trends and Signals API
// @version 1.0
// @description Backend for the Future Trends and Signals System: signal and trend curation with collaborative editing.

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name access_token
// @description Bearer token from the identity provider, a locally issued JWT, or the shared API key.

func main() {
	dbPath := os.Getenv("FTSS_DB_PATH")
	if dbPath == "" {
		dbPath = "ftss.db"
	}

	if err := database.Connect(dbPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	db := database.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if err := choices.Seed(db, choices.DefaultUnits(), nil); err != nil {
		log.Fatalf("Failed to seed choices: %v", err)
	}

	if err := ensureAdminExists(); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	// External token verification, identity cache and blob store are all
	// optional; the server runs without them in local setups.
	resolver, err := auth.NewResolverFromEnv()
	if err != nil {
		log.Fatalf("Failed to configure token verification: %v", err)
	}
	tokenCache := auth.NewTokenCacheFromEnv()

	store, err := storage.NewMinioStoreFromEnv()
	if err != nil {
		log.Fatalf("Failed to configure blob store: %v", err)
	}
	var blobStore storage.Store = storage.Noop{}
	if store != nil {
		blobStore = store
	}

	sender := email.NewSenderFromEnv()

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authMiddleware := auth.NewMiddleware(db, resolver, tokenCache)

	api := r.Group("/api")
	{
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"), authMiddleware)

		authenticated := api.Group("", authMiddleware.Authenticate())

		signals.NewHandler(db, blobStore).RegisterRoutes(authenticated.Group("/signals"))
		trends.NewHandler(db, blobStore).RegisterRoutes(authenticated.Group("/trends"))
		users.NewHandler(db).RegisterRoutes(authenticated.Group("/users"))
		groups.NewHandler(db).RegisterRoutes(authenticated.Group("/user-groups"))
		favourites.NewHandler(db).RegisterRoutes(authenticated.Group("/favourites"))
		choices.NewHandler(db).RegisterRoutes(authenticated.Group("/choices"))

		if sender != nil {
			digest.NewHandler(db, sender).RegisterRoutes(authenticated.Group("/email"))
		} else {
			log.Println("SMTP not configured - email endpoints disabled")
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting FTSS server on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates a default admin user if no admin exists yet, so
// a fresh database can be administered via password login.
func ensureAdminExists() error {
	db := database.GetDB()

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	adminUser := models.User{
		Email:        "admin@ftss.local",
		Name:         "Admin",
		PasswordHash: hashedPassword,
		Role:         models.RoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: admin@ftss.local (password: changeme)")
	return nil
}
