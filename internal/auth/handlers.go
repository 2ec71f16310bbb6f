package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler provides HTTP endpoints for key administration
type Handler struct {
	manager *Manager
}

// NewHandler creates a new auth handler
func NewHandler(m *Manager) *Handler {
	return &Handler{manager: m}
}

// ListKeys returns all issued API keys
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.manager.ListKeys(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list keys",
		})
		return
	}

	// Don't expose hashes
	safeKeys := make([]gin.H, len(keys))
	for i, k := range keys {
		safeKeys[i] = gin.H{
			"id":                 k.ID,
			"name":               k.Name,
			"permissions":        k.Permissions,
			"rateLimitPerMinute": k.RateLimitPerMinute,
			"rateLimitPerHour":   k.RateLimitPerHour,
			"active":             k.Active,
			"createdAt":          k.CreatedAt,
			"lastUsed":           k.LastUsed,
			"expiresAt":          k.ExpiresAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"keys":  safeKeys,
		"count": len(safeKeys),
	})
}

// CreateKeyRequest is the request body for creating a key
type CreateKeyRequest struct {
	Name        string     `json:"name" binding:"required"`
	Permissions []string   `json:"permissions"`
	PerMinute   int        `json:"rateLimitPerMinute"`
	PerHour     int        `json:"rateLimitPerHour"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// CreateKey issues a new API key
func (h *Handler) CreateKey(c *gin.Context) {
	var req CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "name is required",
		})
		return
	}

	for _, p := range req.Permissions {
		if p != PermRead && p != PermAdmin {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "unknown permission: " + p,
			})
			return
		}
	}

	rawKey, newKey, err := h.manager.GenerateKey(c.Request.Context(), req.Name, GenerateOptions{
		Permissions: req.Permissions,
		PerMinute:   req.PerMinute,
		PerHour:     req.PerHour,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to create key",
			"message": "Failed to create API key",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"apiKey":             rawKey,
		"keyId":              newKey.ID,
		"name":               newKey.Name,
		"permissions":        newKey.Permissions,
		"rateLimitPerMinute": newKey.RateLimitPerMinute,
		"rateLimitPerHour":   newKey.RateLimitPerHour,
		"warning":            "Store this key securely. It will not be shown again.",
	})
}

// RevokeKey deactivates an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	keyID := c.Param("keyId")

	if key, ok := GetAPIKey(c); ok && keyID == key.ID {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "cannot_revoke_current",
			"message": "Cannot revoke the key you're using",
		})
		return
	}

	if err := h.manager.RevokeKey(c.Request.Context(), keyID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "key_not_found",
			"message": "Key not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Key revoked",
		"keyId":   keyID,
	})
}
