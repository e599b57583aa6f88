package controllers

import (
	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/services"
	"tvcms/utils"
)

type CommentController struct {
	comments *services.CommentService
}

func NewCommentController(comments *services.CommentService) *CommentController {
	return &CommentController{comments: comments}
}

// ListForFile returns the comment threads on a file
func (cc *CommentController) ListForFile(c *gin.Context) {
	fileID, ok := uuidParam(c, "id", "file")
	if !ok {
		return
	}

	comments, err := cc.comments.ListForFile(c.Request.Context(), fileID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Comments retrieved successfully", comments)
}

func (cc *CommentController) Create(c *gin.Context) {
	fileID, ok := uuidParam(c, "id", "file")
	if !ok {
		return
	}

	var req models.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := cc.comments.Create(c.Request.Context(), actorFrom(c), fileID, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, "Comment created successfully", comment)
}

func (cc *CommentController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id", "comment")
	if !ok {
		return
	}

	var req models.UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := cc.comments.Update(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Comment updated successfully", comment)
}

func (cc *CommentController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id", "comment")
	if !ok {
		return
	}

	if err := cc.comments.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Comment deleted successfully", nil)
}
