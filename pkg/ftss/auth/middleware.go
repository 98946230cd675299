package auth

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/undp-futures/ftss/pkg/ftss/models"
)

const (
	// ContextKeyUser is the key for the resolved user in gin context
	ContextKeyUser = "current_user"
)

// Middleware resolves the caller identity for every request
type Middleware struct {
	db       *gorm.DB
	resolver *Resolver
	cache    *TokenCache
	apiKey   string
	local    bool
}

// NewMiddleware creates the authentication middleware.
// The resolver and cache may be nil when not configured.
func NewMiddleware(db *gorm.DB, resolver *Resolver, cache *TokenCache) *Middleware {
	return &Middleware{
		db:       db,
		resolver: resolver,
		cache:    cache,
		apiKey:   os.Getenv("FTSS_API_KEY"),
		local:    os.Getenv("FTSS_ENV_MODE") == "local",
	}
}

// extractToken pulls the bearer token from the access_token header,
// falling back to a standard Authorization header
func extractToken(c *gin.Context) string {
	if token := c.GetHeader("access_token"); token != "" {
		return token
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return authHeader
}

// Authenticate validates the bearer token or API key and sets the user in context
func (m *Middleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		// The shared API key grants anonymous read access
		if m.apiKey != "" && token == m.apiKey {
			role := models.RoleVisitor
			if m.local {
				role = models.RoleAdmin
			}
			c.Set(ContextKeyUser, models.User{Email: models.AnonymousEmail, Role: role})
			c.Next()
			return
		}

		user, err := m.resolveUser(c, token)
		if err != nil {
			if err == ErrExpiredToken {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, *user)
		c.Next()
	}
}

// resolveUser maps a token to a database user, consulting the cache first
func (m *Middleware) resolveUser(c *gin.Context, token string) (*models.User, error) {
	ctx := c.Request.Context()

	if userID, ok := m.cache.GetUserID(ctx, token); ok {
		var user models.User
		if err := m.db.First(&user, userID).Error; err == nil {
			return &user, nil
		}
	}

	// Locally issued tokens carry the user ID in their claims
	if claims, err := ValidateToken(token); err == nil {
		var user models.User
		if err := m.db.First(&user, claims.UserID).Error; err != nil {
			return nil, ErrInvalidToken
		}
		m.cache.SetUserID(ctx, token, user.ID)
		return &user, nil
	} else if err == ErrExpiredToken {
		return nil, err
	}

	// Externally issued tokens are checked against the OIDC issuer
	identity, err := m.resolver.Verify(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := m.provisionUser(identity)
	if err != nil {
		return nil, ErrInvalidToken
	}
	m.cache.SetUserID(ctx, token, user.ID)
	return user, nil
}

// provisionUser looks up a user by email, creating one on first sight
func (m *Middleware) provisionUser(identity *Identity) (*models.User, error) {
	var user models.User
	err := m.db.Where("email = ?", identity.Email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	user = models.User{
		Email: identity.Email,
		Name:  identity.Name,
		Role:  models.RoleUser,
	}
	if err := m.db.Create(&user).Error; err != nil {
		// Lost a race with a concurrent first request for the same user
		if lookupErr := m.db.Where("email = ?", identity.Email).First(&user).Error; lookupErr == nil {
			return &user, nil
		}
		return nil, err
	}
	return &user, nil
}

// CurrentUser returns the authenticated user from the gin context
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(ContextKeyUser)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

// RequireUser middleware rejects visitors
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := CurrentUser(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		if user.Role == models.RoleVisitor {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCurator middleware checks for curator or admin role
func RequireCurator() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := CurrentUser(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		if !user.IsStaff() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Curator access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin middleware checks for admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := CurrentUser(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
