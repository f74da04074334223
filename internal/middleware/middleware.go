package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"ceseminars/internal/logger"
	"ceseminars/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	requestIDHeader = "X-Request-ID"

	// gin context keys
	UserIDKey  = "user_id"
	IsAdminKey = "is_admin"
)

// UserLookup is the part of the user store the auth middleware needs
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthCache remembers verified credentials. *cache.ValkeyClient implements it.
type AuthCache interface {
	GetUserIDByAuth(ctx context.Context, email, passwordHash string) (int64, error)
	StoreUserAuth(ctx context.Context, email, passwordHash string, userID int64) error
}

// HashPassword returns the hex SHA-256 digest stored in users.password_hash
func HashPassword(password string) string {
	hash := sha256.Sum256([]byte(password))
	return fmt.Sprintf("%x", hash)
}

// CORS middleware for cross-origin requests
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// RequestID propagates or creates a request id and puts it on the context
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = logger.NewRequestID()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Logger writes one structured line per request. Failed requests log at error level.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		log := logger.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			if len(c.Errors) > 0 {
				fields = append(fields, "error", c.Errors.String())
			}
			log.Error("Request completed with error", fields...)
		case status >= 400:
			log.Warn("Request rejected", fields...)
		default:
			log.Debug("Request completed", fields...)
		}
	}
}

// Recovery turns a panic into a 500 and logs it
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithContext(c.Request.Context()).Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
	})
}

// Timeout bounds the request context
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// BasicAuth authenticates by email and password, trying the credential
// cache before the users table. Cache may be nil.
func BasicAuth(users UserLookup, cache AuthCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", "Basic realm=\"Restricted\"")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := c.Request.Context()
		passwordHash := HashPassword(password)

		if cache != nil {
			if userID, err := cache.GetUserIDByAuth(ctx, email, passwordHash); err == nil {
				authenticated(c, userID)
				return
			}
		}

		user, err := users.GetByEmail(ctx, email)
		if err != nil || user == nil || !user.IsActive || user.PasswordHash == "" || user.PasswordHash != passwordHash {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if cache != nil {
			if err := cache.StoreUserAuth(ctx, email, passwordHash, user.UserID); err != nil {
				logger.WithContext(ctx).Warn("Failed to cache credentials", "error", err)
			}
		}
		c.Set(IsAdminKey, user.IsAdmin)
		authenticated(c, user.UserID)
	}
}

func authenticated(c *gin.Context, userID int64) {
	c.Set(UserIDKey, userID)
	c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), userID))
	c.Next()
}

// RequireAdmin lets only admin users through. It must run after BasicAuth.
func RequireAdmin(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAdmin(c, users) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
	}
}

// IsAdmin reports whether the authenticated caller is an admin. A cache
// hit in BasicAuth leaves the flag unknown, so the user is loaded once.
func IsAdmin(c *gin.Context, users UserLookup) bool {
	if v, ok := c.Get(IsAdminKey); ok {
		admin, _ := v.(bool)
		return admin
	}
	userID, ok := UserID(c)
	if !ok {
		return false
	}
	user, err := users.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil || !user.IsActive {
		return false
	}
	c.Set(IsAdminKey, user.IsAdmin)
	return user.IsAdmin
}

// UserID returns the authenticated caller
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
