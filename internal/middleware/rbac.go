package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/competition-approval-api/internal/models"
	appErrors "github.com/noah-isme/competition-approval-api/pkg/errors"
	"github.com/noah-isme/competition-approval-api/pkg/response"
)

// Self lets a route through when the :id path parameter is the caller.
const Self = "SELF"

// RBAC enforces role-based access control for routes. Department scoping is
// left to the services.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == Self {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param("id"); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" cannot access this resource"))
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// Admins covers every role that reviews or manages records.
func Admins() gin.HandlerFunc {
	return RequireRoles(models.RoleSuperAdmin, models.RoleSchoolAdmin, models.RoleDepartmentAdmin)
}

// SchoolAdmins covers the school-level roles.
func SchoolAdmins() gin.HandlerFunc {
	return RequireRoles(models.RoleSuperAdmin, models.RoleSchoolAdmin)
}
