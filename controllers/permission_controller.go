package controllers

import (
	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/services"
	"tvcms/utils"
)

type PermissionController struct {
	permissions *services.PermissionService
}

func NewPermissionController(permissions *services.PermissionService) *PermissionController {
	return &PermissionController{permissions: permissions}
}

// List returns the grants on one resource
func (pc *PermissionController) List(c *gin.Context) {
	resourceType := models.ResourceType(c.Query("resourceType"))
	resourceID := c.Query("resourceId")
	if !utils.IsValidUUID(resourceID) {
		utils.BadRequestResponse(c, "Invalid resource ID")
		return
	}

	grants, err := pc.permissions.List(c.Request.Context(), actorFrom(c), resourceType, resourceID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Permissions retrieved successfully", grants)
}

func (pc *PermissionController) Grant(c *gin.Context) {
	var req models.GrantPermissionRequest
	if !bindJSON(c, &req) {
		return
	}

	grant, err := pc.permissions.Grant(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, "Permission granted successfully", grant)
}

func (pc *PermissionController) Revoke(c *gin.Context) {
	id, ok := uuidParam(c, "id", "permission")
	if !ok {
		return
	}

	if err := pc.permissions.Revoke(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Permission revoked successfully", nil)
}
