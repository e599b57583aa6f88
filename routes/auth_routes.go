package routes

import (
	"github.com/gin-gonic/gin"

	"tvcms/controllers"
	"tvcms/middleware"
)

func AuthRoutes(r *gin.RouterGroup, deps Dependencies, session gin.HandlerFunc) {
	authController := controllers.NewAuthController(deps.Services.Auth)

	auth := r.Group("/auth")
	auth.Use(middleware.Limit(deps.RateLimits.Auth))
	{
		// Public authentication routes
		auth.POST("/register", authController.Register)
		auth.POST("/login", authController.Login)
		auth.POST("/refresh", authController.Refresh)

		// Session routes
		auth.POST("/logout", session, authController.Logout)
		auth.GET("/me", session, authController.Me)
	}
}
