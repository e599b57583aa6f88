package controllers

import (
	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/services"
	"tvcms/utils"
)

type FolderController struct {
	folders *services.FolderService
}

func NewFolderController(folders *services.FolderService) *FolderController {
	return &FolderController{folders: folders}
}

// List returns the folders under parentId, or the root folders when it is
// absent or "root"
func (fc *FolderController) List(c *gin.Context) {
	var q models.FolderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequestResponse(c, "Invalid query parameters")
		return
	}
	if q.ParentID != "" && q.ParentID != services.RootFolder && !utils.IsValidUUID(q.ParentID) {
		utils.BadRequestResponse(c, "Invalid parent folder ID")
		return
	}

	folders, err := fc.folders.List(c.Request.Context(), q)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Folders retrieved successfully", folders)
}

// Get returns a folder with its subfolders and files
func (fc *FolderController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id", "folder")
	if !ok {
		return
	}

	folder, err := fc.folders.GetByID(c.Request.Context(), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Folder retrieved successfully", folder)
}

func (fc *FolderController) Create(c *gin.Context) {
	var req models.CreateFolderRequest
	if !bindJSON(c, &req) {
		return
	}

	folder, err := fc.folders.Create(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, "Folder created successfully", folder)
}

// Update renames, moves or restyles a folder; owner or admin
func (fc *FolderController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id", "folder")
	if !ok {
		return
	}

	var req models.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data")
		return
	}

	folder, err := fc.folders.Update(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Folder updated successfully", folder)
}

// Delete removes an empty folder; owner or admin
func (fc *FolderController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id", "folder")
	if !ok {
		return
	}

	if err := fc.folders.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "Folder deleted successfully", nil)
}
