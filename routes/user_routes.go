package routes

import (
	"github.com/gin-gonic/gin"

	"tvcms/controllers"
	"tvcms/middleware"
)

func UserRoutes(r *gin.RouterGroup, deps Dependencies) {
	userController := controllers.NewUserController(deps.Services.Users)

	users := r.Group("/users")
	{
		// Self or admin, checked by the service
		users.PUT("/:id/password", userController.ChangePassword)

		admin := users.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.GET("", userController.List)
			admin.GET("/:id", userController.Get)
			admin.POST("", userController.Create)
			admin.PUT("/:id", userController.Update)
			admin.DELETE("/:id", userController.Delete)
		}
	}
}

func ProgramRoutes(r *gin.RouterGroup, deps Dependencies) {
	programController := controllers.NewProgramController(deps.Services.Programs)

	programs := r.Group("/programs")
	{
		programs.GET("", programController.List)
		programs.GET("/:id", programController.Get)

		admin := programs.Group("")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("", programController.Create)
			admin.PUT("/:id", programController.Update)
			admin.DELETE("/:id", programController.Delete)
		}
	}
}
