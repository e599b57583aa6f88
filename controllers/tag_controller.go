package controllers

import (
	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/services"
	"tvcms/utils"
)

type TagController struct {
	tags *services.TagService
}

func NewTagController(tags *services.TagService) *TagController {
	return &TagController{tags: tags}
}

func (tc *TagController) List(c *gin.Context) {
	tags, err := tc.tags.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Tags retrieved successfully", tags)
}

// Create finds or creates a tag by slug
func (tc *TagController) Create(c *gin.Context) {
	var req models.CreateTagRequest
	if !bindJSON(c, &req) {
		return
	}

	tag, err := tc.tags.Create(c.Request.Context(), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, "Tag created successfully", tag)
}

func (tc *TagController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id", "tag")
	if !ok {
		return
	}

	if err := tc.tags.Delete(c.Request.Context(), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Tag deleted successfully", nil)
}
