package middleware

import (
	"device-finance-backoffice/internal/config"
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/pkg/utils"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "userID"
	ContextEmail  = "email"
	ContextRole   = "role"
)

func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.Secret)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		switch actor.Role(claims.Role) {
		case actor.RoleSuperAdmin, actor.RoleAdmin:
		default:
			utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// ActorFromContext returns the authenticated back-office caller. ok is false
// when AuthMiddleware did not run for the request.
func ActorFromContext(c *gin.Context) (actor.Actor, bool) {
	id := c.GetString(ContextUserID)
	role := c.GetString(ContextRole)
	if id == "" || role == "" {
		return actor.Actor{}, false
	}
	return actor.Actor{ID: id, Role: actor.Role(role)}, true
}
