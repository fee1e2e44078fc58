package middleware

import (
	"net/http"
	"strings"

	"mediareview/internal/logging"
	"mediareview/internal/microservices/http-api/permission"
	"mediareview/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const actorKey = "actor"

// Authenticate resolves the bearer token into the request actor. Requests
// without an Authorization header continue as anonymous; a header that is
// malformed or carries a bad token is rejected with 401.
func Authenticate(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(actorKey, permission.Anonymous())
			c.Next()
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid authorization header format."})
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			logging.Ctx(c.Request.Context()).Debug().Err(err).Msg("token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type."})
			return
		}

		c.Set(actorKey, permission.FromUser(user))
		c.Next()
	}
}

// ActorFrom returns the actor stored by Authenticate, or the anonymous actor.
func ActorFrom(c *gin.Context) permission.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(permission.Actor); ok {
			return actor
		}
	}
	return permission.Anonymous()
}
