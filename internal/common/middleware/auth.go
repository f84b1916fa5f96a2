package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	redisplatform "nodeproof-backend/internal/platform/redis"
)

const keyPrefixSession = "session:"

// Auth resolves the bearer token to an operator ID via the session store and
// places it in the request context.
func Auth(rdb *redisplatform.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		operatorID, err := lookupSession(c.Request.Context(), rdb, token)
		if err == nil {
			c.Set("requester_id", operatorID)
		}
		c.Next()
	}
}

// RequireAuth rejects requests that did not resolve to an operator.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("requester_id"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: bearer token required"})
			return
		}
		c.Next()
	}
}

// RequireAdmin restricts a route to the configured admin operators.
func RequireAdmin(adminIDs []int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		requesterID, ok := GetRequesterID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: bearer token required"})
			return
		}

		for _, adminID := range adminIDs {
			if requesterID == adminID {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: admin access required"})
	}
}

// GetRequesterID returns the authenticated operator's ID.
func GetRequesterID(c *gin.Context) (int64, bool) {
	v, ok := c.Get("requester_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func lookupSession(ctx context.Context, rdb *redisplatform.Client, token string) (int64, error) {
	raw, err := rdb.Get(ctx, keyPrefixSession+token).Result()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
