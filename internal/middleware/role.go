package middleware

import (
	"device-finance-backoffice/internal/domain/actor"
	"device-finance-backoffice/pkg/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

func RoleMiddleware(allowedRoles ...actor.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists {
			utils.ErrorResponse(c, http.StatusForbidden, "Role not found in context")
			c.Abort()
			return
		}

		userRole, _ := role.(string)

		for _, allowedRole := range allowedRoles {
			if actor.Role(userRole) == allowedRole {
				c.Next()
				return
			}
		}

		utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
		c.Abort()
	}
}

func SuperAdminOnly() gin.HandlerFunc {
	return RoleMiddleware(actor.RoleSuperAdmin)
}

func StaffOnly() gin.HandlerFunc {
	return RoleMiddleware(actor.RoleSuperAdmin, actor.RoleAdmin)
}
