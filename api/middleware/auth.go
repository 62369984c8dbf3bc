package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrapeform/models"
)

// Context keys set by Auth.
const (
	KeyAPIKey = "api_key"
	KeyUser   = "user"
)

// Auth returns API-key authentication middleware. users maps each accepted
// key to the email of its owner; an empty email authenticates without a
// user.
//
// Supports two header styles:
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// If users is empty, the middleware is a no-op (open access).
func Auth(users map[string]string) gin.HandlerFunc {
	if len(users) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := extractAPIKey(c)
		if key == "" {
			abortUnauthorized(c, "missing API key: provide X-API-Key header or Authorization: Bearer <key>")
			return
		}

		email, valid := users[key]
		if !valid {
			abortUnauthorized(c, "invalid API key")
			return
		}

		c.Set(KeyAPIKey, key)
		if email != "" {
			c.Set(KeyUser, &models.User{Email: email})
		}
		c.Next()
	}
}

// UserFrom returns the user authenticated on c, or nil.
func UserFrom(c *gin.Context) *models.User {
	if v, ok := c.Get(KeyUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Error: &models.ErrorDetail{Code: models.ErrCodeUnauthorized, Message: msg},
	})
}

// extractAPIKey tries X-API-Key first, then Authorization: Bearer.
func extractAPIKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
