package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/utils"
)

// TokenAuthenticator resolves a bearer token to an active user
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// AuthMiddleware validates the bearer token and stores the user in the context
func AuthMiddleware(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.UnauthorizedResponse(c, "Authorization header required")
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		tokenParts := strings.Fields(authHeader)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
			utils.UnauthorizedResponse(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), tokenParts[1])
		if err != nil {
			utils.HandleError(c, err)
			c.Abort()
			return
		}

		utils.SetUserInContext(c, user)
		c.Next()
	}
}

// RequireRoles lets the request through only for the listed roles.
// It must run after AuthMiddleware.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, exists := utils.GetUserFromContext(c)
		if !exists {
			utils.UnauthorizedResponse(c, "User not found in context")
			c.Abort()
			return
		}

		if _, ok := allowed[user.Role]; !ok {
			utils.ForbiddenResponse(c, "Insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin restricts a route to administrators
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
