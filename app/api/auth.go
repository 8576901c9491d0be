package api

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// authMiddleware requires the API key in X-API-Key or as a Bearer token.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			respondError(c, &AuthorizationError{Reason: "API key required"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiAccessKey)) != 1 {
			respondError(c, &AuthorizationError{Reason: "invalid API key"})
			return
		}

		c.Next()
	}
}
