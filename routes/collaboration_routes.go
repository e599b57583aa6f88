package routes

import (
	"github.com/gin-gonic/gin"

	"tvcms/controllers"
	"tvcms/middleware"
	"tvcms/models"
)

// CollaborationRoutes mounts comments, tags, permission grants and the audit trail
func CollaborationRoutes(r *gin.RouterGroup, deps Dependencies) {
	commentController := controllers.NewCommentController(deps.Services.Comments)
	tagController := controllers.NewTagController(deps.Services.Tags)
	permissionController := controllers.NewPermissionController(deps.Services.Permissions)
	activityController := controllers.NewActivityController(deps.Services.Activities)

	comments := r.Group("/comments")
	{
		comments.PUT("/:id", commentController.Update)
		comments.DELETE("/:id", commentController.Delete)
	}

	tags := r.Group("/tags")
	{
		tags.GET("", tagController.List)
		tags.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleEditor, models.RoleProducer), tagController.Create)
		tags.DELETE("/:id", middleware.RequireAdmin(), tagController.Delete)
	}

	permissions := r.Group("/permissions")
	{
		permissions.GET("", permissionController.List)
		permissions.POST("", permissionController.Grant)
		permissions.DELETE("/:id", permissionController.Revoke)
	}

	r.GET("/activities", middleware.RequireAdmin(), activityController.List)
}
