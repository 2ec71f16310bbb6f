package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyAPIKey is the key for storing API key in gin context
	ContextKeyAPIKey = "apiKey"
)

// Middleware extracts and validates an API key from the request.
// Sets apiKey in context if valid; anonymous requests pass through.
func Middleware(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("Authorization")
		if apiKey == "" {
			apiKey = c.GetHeader("X-API-Key")
		}

		if apiKey != "" {
			key, err := m.ValidateKey(c.Request.Context(), apiKey)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":   "unauthorized",
					"message": "Invalid or expired API key.",
				})
				return
			}
			c.Set(ContextKeyAPIKey, key)
		}

		c.Next()
	}
}

// RequireAuth rejects requests without a validated key.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextKeyAPIKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "API key required. Include 'Authorization: Bearer bk_...' header.",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin gates key administration. The shared admin secret
// (X-Admin-Secret header) or a key carrying the admin permission both
// pass.
func RequireAdmin(adminSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminSecret != "" {
			presented := c.GetHeader("X-Admin-Secret")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(adminSecret)) == 1 {
				c.Next()
				return
			}
		}

		if key, ok := GetAPIKey(c); ok && key.HasPermission(PermAdmin) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "Key administration requires the admin secret or an admin key.",
		})
	}
}

// GetAPIKey returns the API key from context (if authenticated)
func GetAPIKey(c *gin.Context) (*APIKey, bool) {
	key, exists := c.Get(ContextKeyAPIKey)
	if !exists {
		return nil, false
	}
	return key.(*APIKey), true
}

// IsAuthenticated checks if the request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ContextKeyAPIKey)
	return exists
}

// ClientKey is the rate-limit identity for a request: the key ID when
// authenticated, otherwise the client IP on the anonymous tier.
func ClientKey(c *gin.Context) (id string, key *APIKey) {
	if k, ok := GetAPIKey(c); ok {
		return "key:" + k.ID, k
	}
	return "ip:" + c.ClientIP(), nil
}
