package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APIKeyAuth authenticates requests against the configured static keys. The
// key travels in either "Authorization: Bearer <key>" or "X-Api-Key".
func APIKeyAuth(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader("X-Api-Key")
		if presented == "" {
			auth := c.GetHeader("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				presented = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		for _, key := range keys {
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":    "unauthorized",
			"message": "missing or invalid api key",
		})
	}
}
