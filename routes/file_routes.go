package routes

import (
	"github.com/gin-gonic/gin"

	"tvcms/controllers"
	"tvcms/middleware"
)

func FileRoutes(r *gin.RouterGroup, deps Dependencies) {
	fileController := controllers.NewFileController(deps.Services.Files, controllers.UploadLimits{
		MaxFileSize: deps.Config.MaxFileSize,
		AllowType:   deps.Config.IsAllowedFileType,
	})
	commentController := controllers.NewCommentController(deps.Services.Comments)

	files := r.Group("/files")
	{
		files.GET("", fileController.List)
		files.POST("/upload", middleware.Limit(deps.RateLimits.Upload), fileController.Upload)
		files.GET("/:id", fileController.Get)
		files.PUT("/:id", fileController.Update)
		files.DELETE("/:id", fileController.Delete)
		files.GET("/:id/download", fileController.Download)

		// File comments
		files.GET("/:id/comments", commentController.ListForFile)
		files.POST("/:id/comments", commentController.Create)
	}
}
