package controllers

import (
	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/services"
	"tvcms/utils"
)

type ActivityController struct {
	activities *services.ActivityService
}

func NewActivityController(activities *services.ActivityService) *ActivityController {
	return &ActivityController{activities: activities}
}

// List returns the audit trail newest first
func (ac *ActivityController) List(c *gin.Context) {
	page, limit := utils.NormalizePagination(queryInt(c, "page", utils.DefaultPage), queryInt(c, "limit", utils.DefaultLimit))
	filter := models.ActivityFilter{
		UserID:       c.Query("userId"),
		Action:       c.Query("action"),
		ResourceType: c.Query("resourceType"),
		ResourceID:   c.Query("resourceId"),
		Page:         page,
		Limit:        limit,
	}

	activities, total, err := ac.activities.List(c.Request.Context(), filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.PaginatedResponse(c, "Activities retrieved successfully", activities, page, limit, total)
}
