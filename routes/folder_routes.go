package routes

import (
	"github.com/gin-gonic/gin"

	"tvcms/controllers"
)

// FolderRoutes mounts folder CRUD. Ownership is enforced by the service.
func FolderRoutes(r *gin.RouterGroup, deps Dependencies) {
	folderController := controllers.NewFolderController(deps.Services.Folders)

	folders := r.Group("/folders")
	{
		folders.GET("", folderController.List)
		folders.GET("/:id", folderController.Get)
		folders.POST("", folderController.Create)
		folders.PUT("/:id", folderController.Update)
		folders.DELETE("/:id", folderController.Delete)
	}
}
