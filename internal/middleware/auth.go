package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homeservices/internal/domain"
)

// Identity headers set by the upstream gateway after it authenticated the caller.
const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"
)

const actorKey = "actor"

// Authenticate reads the caller identity from the gateway headers.
// Requests without a usable identity are rejected with 401.
func Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := domain.Actor{
			ID:   strings.TrimSpace(c.GetHeader(ActorIDHeader)),
			Role: domain.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(ActorRoleHeader)))),
		}
		if actor.ID == "" || !actor.Role.Valid() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid actor identity"})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not listed with 403.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// ActorFrom returns the authenticated actor, or the zero actor when none was set.
func ActorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return domain.Actor{}
}
