package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tvcms/models"
	"tvcms/services"
	"tvcms/utils"
)

// multipartOverhead leaves room for form fields and part headers on top of the file itself
const multipartOverhead = 1 << 20

// UploadLimits are checked against the multipart header before anything is staged
type UploadLimits struct {
	MaxFileSize int64
	AllowType   func(mimeType string) bool
}

type FileController struct {
	files  *services.FileService
	limits UploadLimits
}

func NewFileController(files *services.FileService, limits UploadLimits) *FileController {
	return &FileController{files: files, limits: limits}
}

// List returns files with filters and pagination
func (fc *FileController) List(c *gin.Context) {
	var q models.FileListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.BadRequestResponse(c, "Invalid query parameters")
		return
	}
	q.Page, q.Limit = utils.NormalizePagination(q.Page, q.Limit)

	files, total, err := fc.files.List(c.Request.Context(), q)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.PaginatedResponse(c, "Files retrieved successfully", files, q.Page, q.Limit, total)
}

// Get returns a file and counts the view
func (fc *FileController) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id", "file")
	if !ok {
		return
	}

	file, err := fc.files.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "File retrieved successfully", file)
}

// Upload handles a multipart upload with fields file, folderId, programId, tags and isPublic
func (fc *FileController) Upload(c *gin.Context) {
	if fc.limits.MaxFileSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, fc.limits.MaxFileSize+multipartOverhead)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			utils.HandleError(c, utils.FieldValidationError("file", "file exceeds the maximum allowed size"))
			return
		}
		utils.BadRequestResponse(c, "No file provided")
		return
	}

	if err := singleFilePart(c.Request.MultipartForm); err != nil {
		utils.HandleError(c, err)
		return
	}

	if fc.limits.MaxFileSize > 0 && header.Size > fc.limits.MaxFileSize {
		utils.HandleError(c, utils.FieldValidationError("file", fmt.Sprintf("file exceeds the maximum allowed size of %d bytes", fc.limits.MaxFileSize)))
		return
	}

	declared := header.Header.Get("Content-Type")
	if declared != "" && fc.limits.AllowType != nil && !fc.limits.AllowType(declared) {
		utils.HandleError(c, utils.FieldValidationError("file", fmt.Sprintf("file type %s is not allowed", declared)))
		return
	}

	folderID, ok := optionalFormID(c, "folderId", "folder")
	if !ok {
		return
	}
	programID, ok := optionalFormID(c, "programId", "program")
	if !ok {
		return
	}

	tags, err := formTags(c)
	if err != nil {
		utils.HandleError(c, utils.FieldValidationError("tags", "tags must be a list of names"))
		return
	}
	isPublic, _ := strconv.ParseBool(c.PostForm("isPublic"))

	src, err := header.Open()
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read uploaded file")
		return
	}
	defer src.Close()

	file, err := fc.files.Upload(c.Request.Context(), actorFrom(c), services.UploadInput{
		Reader:       src,
		OriginalName: header.Filename,
		DeclaredMIME: declared,
		FolderID:     folderID,
		ProgramID:    programID,
		Tags:         tags,
		IsPublic:     isPublic,
	})
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.CreatedResponse(c, "File uploaded successfully", file)
}

// Update renames, moves, publishes or re-tags a file; owner or admin
func (fc *FileController) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id", "file")
	if !ok {
		return
	}

	var req models.UpdateFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request data")
		return
	}

	file, err := fc.files.Update(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "File updated successfully", file)
}

// Delete soft-deletes a file after removing its stored objects; owner or admin
func (fc *FileController) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id", "file")
	if !ok {
		return
	}

	if err := fc.files.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, "File deleted successfully", nil)
}

// Download streams the stored object as an attachment
func (fc *FileController) Download(c *gin.Context) {
	id, ok := uuidParam(c, "id", "file")
	if !ok {
		return
	}

	file, reader, err := fc.files.Download(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", file.OriginalName),
	})
}

// singleFilePart requires exactly one file part, sent under the "file" field
func singleFilePart(form *multipart.Form) error {
	if form == nil {
		return utils.FieldValidationError("file", "file is required")
	}
	for field := range form.File {
		if field != "file" {
			return utils.FieldValidationError(field, fmt.Sprintf("unexpected file field %q, send the upload as \"file\"", field))
		}
	}
	if len(form.File["file"]) != 1 {
		return utils.FieldValidationError("file", "exactly one file must be uploaded")
	}
	return nil
}

func optionalFormID(c *gin.Context, field, label string) (*string, bool) {
	value := strings.TrimSpace(c.PostForm(field))
	if value == "" {
		return nil, true
	}
	if !utils.IsValidUUID(value) {
		utils.BadRequestResponse(c, "Invalid "+label+" ID")
		return nil, false
	}
	return &value, true
}

// formTags accepts repeated tags or tags[] fields, a JSON array, or a comma separated list
func formTags(c *gin.Context) ([]string, error) {
	values := append(c.PostFormArray("tags"), c.PostFormArray("tags[]")...)

	var tags []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if strings.HasPrefix(value, "[") {
			var parsed []string
			if err := json.Unmarshal([]byte(value), &parsed); err != nil {
				return nil, err
			}
			tags = append(tags, parsed...)
			continue
		}
		tags = append(tags, strings.Split(value, ",")...)
	}
	return tags, nil
}
