package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tvcms/metrics"
	"tvcms/models"
	"tvcms/storage"
	"tvcms/utils"
)

const (
	genericMIME   = "application/octet-stream"
	plainTextMIME = "text/plain"
)

// UploadInput is one incoming file plus its form fields
type UploadInput struct {
	Reader       io.Reader
	OriginalName string
	DeclaredMIME string
	FolderID     *string
	ProgramID    *string
	Tags         []string
	IsPublic     bool
}

// FileServiceConfig holds upload settings
type FileServiceConfig struct {
	TempPath string
	// AllowType reports whether a detected MIME type may be stored; nil allows all
	AllowType func(mimeType string) bool
}

type FileService struct {
	db         *gorm.DB
	storage    storage.Storage
	media      MediaProcessor
	tags       *TagService
	activities *ActivityService
	cfg        FileServiceConfig
	log        *logrus.Logger
}

func NewFileService(db *gorm.DB, store storage.Storage, media MediaProcessor, tags *TagService, activities *ActivityService, cfg FileServiceConfig, log *logrus.Logger) *FileService {
	return &FileService{
		db:         db,
		storage:    store,
		media:      media,
		tags:       tags,
		activities: activities,
		cfg:        cfg,
		log:        log,
	}
}

// Upload stages, enriches and stores a file, then creates its record.
// Staged artifacts are always removed before returning; stored objects are
// removed again when the record cannot be written.
func (fs *FileService) Upload(ctx context.Context, actor Actor, in UploadInput) (file *models.File, err error) {
	originalName := utils.CleanFileName(in.OriginalName)
	storageName := utils.GenerateStorageName(originalName)
	category := utils.CategoryOther

	logger := fs.log.WithFields(logrus.Fields{
		"user_id":       actor.UserID(),
		"original_name": originalName,
		"file_name":     storageName,
	})

	defer func() {
		status := "ready"
		if err != nil {
			status = "failed"
		}
		metrics.UploadsTotal.WithLabelValues(category, status).Inc()
	}()

	if err := os.MkdirAll(fs.cfg.TempPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	stagedPath := filepath.Join(fs.cfg.TempPath, storageName)
	thumbnailPath := filepath.Join(fs.cfg.TempPath, utils.ThumbnailName(storageName))

	defer fs.removeStaged(logger, stagedPath, thumbnailPath)

	// Stage the upload
	size, err := stageFile(stagedPath, in.Reader)
	if err != nil {
		return nil, err
	}

	// Validate references
	folderID := nonEmpty(in.FolderID)
	programID := nonEmpty(in.ProgramID)
	if folderID != nil {
		if _, err := findFolder(ctx, fs.db, *folderID); err != nil {
			return nil, err
		}
	}
	if programID != nil {
		if err := ensureProgram(ctx, fs.db, *programID); err != nil {
			return nil, err
		}
	}

	// Detect type from content
	mimeType, err := detectMIME(stagedPath, in.DeclaredMIME)
	if err != nil {
		return nil, err
	}
	if fs.cfg.AllowType != nil && !fs.cfg.AllowType(mimeType) {
		return nil, utils.FieldValidationError("file", fmt.Sprintf("file type %s is not allowed", mimeType))
	}
	category = utils.GetFileCategory(mimeType)

	// Type-dependent enrichment
	info, err := fs.media.Process(ctx, category, stagedPath, thumbnailPath)
	if err != nil {
		logger.WithError(err).WithField("category", category).Error("Media enrichment failed")
		return nil, utils.NewUpstreamError("Failed to process media file", err)
	}
	if info == nil {
		info = &models.MediaInfo{}
	}

	// Store objects
	objectKey := storage.ObjectKey(storageName)
	if err := fs.putFile(ctx, objectKey, stagedPath, size, mimeType); err != nil {
		return nil, err
	}
	stored := []string{objectKey}

	var thumbnailKey *string
	if info.ThumbnailPath != "" {
		key := storage.ThumbnailKey(utils.ThumbnailName(storageName))
		if err := fs.putFile(ctx, key, info.ThumbnailPath, -1, "image/jpeg"); err != nil {
			fs.removeStored(logger, stored)
			return nil, err
		}
		stored = append(stored, key)
		thumbnailKey = &key
	}

	record := &models.File{
		OriginalName:    originalName,
		FileName:        storageName,
		Size:            size,
		MimeType:        mimeType,
		Extension:       utils.FileExtension(originalName),
		URL:             fs.storage.URL(objectKey),
		StorageProvider: fs.storage.Name(),
		StorageKey:      objectKey,
		ThumbnailKey:    thumbnailKey,
		Duration:        info.Duration,
		Resolution:      info.Resolution,
		Codec:           info.Codec,
		FolderID:        folderID,
		ProgramID:       programID,
		UploadedBy:      actor.UserID(),
		Status:          models.FileStatusReady,
		Version:         1,
		IsPublic:        in.IsPublic,
	}
	if thumbnailKey != nil {
		url := fs.storage.URL(*thumbnailKey)
		record.ThumbnailURL = &url
	}
	if len(info.Metadata) > 0 {
		raw, err := json.Marshal(info.Metadata)
		if err != nil {
			fs.removeStored(logger, stored)
			return nil, fmt.Errorf("failed to encode media metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(raw)
	}

	// Create the record and attach tags atomically
	err = fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags, err := fs.tags.Resolve(ctx, tx, in.Tags)
		if err != nil {
			return err
		}
		if err := tx.Omit("Tags").Create(record).Error; err != nil {
			return fmt.Errorf("failed to create file record: %w", err)
		}
		return fs.tags.Replace(ctx, tx, record, tags)
	})
	if err != nil {
		fs.removeStored(logger, stored)
		return nil, err
	}

	metrics.UploadBytes.Add(float64(size))
	logger.WithFields(logrus.Fields{"file_id": record.ID, "size": size, "mime_type": mimeType}).Info("File uploaded")
	fs.activities.Record(ctx, actor, models.ActionFileUpload, models.ResourceFile, record.ID, map[string]interface{}{
		"originalName": originalName,
		"size":         size,
		"mimeType":     mimeType,
	})

	return fs.load(ctx, record.ID)
}

// List returns live files newest first with their relations
func (fs *FileService) List(ctx context.Context, q models.FileListQuery) ([]models.File, int64, error) {
	page, limit := utils.NormalizePagination(q.Page, q.Limit)

	query := fs.db.WithContext(ctx).Model(&models.File{})
	if q.FolderID != "" {
		query = query.Where("folder_id = ?", q.FolderID)
	}
	if q.ProgramID != "" {
		query = query.Where("program_id = ?", q.ProgramID)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		query = query.Where(utils.LikeClause("original_name"), utils.ContainsPattern(term))
	}
	if prefix := strings.ToLower(strings.TrimSpace(q.Type)); prefix != "" {
		query = query.Where(utils.LikeClause("mime_type"), utils.EscapeLike(prefix)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count files: %w", err)
	}

	files := []models.File{}
	err := withFileRelations(query).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&files).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list files: %w", err)
	}
	return files, total, nil
}

// Get returns a file and counts the view
func (fs *FileService) Get(ctx context.Context, actor Actor, id string) (*models.File, error) {
	file, err := fs.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if fs.increment(ctx, id, "views") {
		file.Views++
	}
	fs.activities.Record(ctx, actor, models.ActionFileView, models.ResourceFile, id, nil)
	return file, nil
}

// Download opens the stored object and counts the download. The caller closes the reader.
func (fs *FileService) Download(ctx context.Context, actor Actor, id string) (*models.File, io.ReadCloser, error) {
	file, err := fs.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	reader, err := fs.storage.Open(ctx, file.StorageKey)
	if err != nil {
		fs.log.WithError(err).WithField("file_id", id).Error("Failed to open stored object")
		return nil, nil, utils.NewUpstreamError("Failed to read file from storage", err)
	}

	if fs.increment(ctx, id, "downloads") {
		file.Downloads++
	}
	fs.activities.Record(ctx, actor, models.ActionFileDownload, models.ResourceFile, id, nil)
	return file, reader, nil
}

// Update renames, moves, publishes or re-tags a file
func (fs *FileService) Update(ctx context.Context, actor Actor, id string, req *models.UpdateFileRequest) (*models.File, error) {
	updates := map[string]interface{}{}

	err := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		file, err := findFile(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := Authorize(actor.User, file, "update this file"); err != nil {
			return err
		}

		if req.OriginalName.Set {
			name := strings.TrimSpace(stringOrEmpty(req.OriginalName.Value))
			if name == "" {
				return utils.FieldValidationError("originalName", "originalName cannot be empty")
			}
			updates["original_name"] = utils.CleanFileName(name)
		}

		if req.FolderID.Set {
			folderID := nonEmpty(req.FolderID.Value)
			if folderID != nil {
				if _, err := findFolder(ctx, tx, *folderID); err != nil {
					return err
				}
			}
			updates["folder_id"] = folderID
		}

		if req.ProgramID.Set {
			programID := nonEmpty(req.ProgramID.Value)
			if programID != nil {
				if err := ensureProgram(ctx, tx, *programID); err != nil {
					return err
				}
			}
			updates["program_id"] = programID
		}

		if req.IsPublic.Set {
			if req.IsPublic.Value == nil {
				return utils.FieldValidationError("isPublic", "isPublic cannot be null")
			}
			updates["is_public"] = *req.IsPublic.Value
		}

		if len(updates) > 0 {
			if err := tx.Model(file).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update file: %w", err)
			}
		}

		if req.Tags.Set {
			var names []string
			if req.Tags.Value != nil {
				names = *req.Tags.Value
			}
			tags, err := fs.tags.Resolve(ctx, tx, names)
			if err != nil {
				return err
			}
			if err := fs.tags.Replace(ctx, tx, file, tags); err != nil {
				return err
			}
			updates["tags"] = len(tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		fs.activities.Record(ctx, actor, models.ActionFileUpdate, models.ResourceFile, id, updatedFields(updates))
	}
	return fs.load(ctx, id)
}

// Delete removes the stored objects and then soft-deletes the record
func (fs *FileService) Delete(ctx context.Context, actor Actor, id string) error {
	file, err := findFile(ctx, fs.db, id)
	if err != nil {
		return err
	}
	if err := Authorize(actor.User, file, "delete this file"); err != nil {
		return err
	}

	keys := []string{file.StorageKey}
	if file.ThumbnailKey != nil {
		keys = append(keys, *file.ThumbnailKey)
	}
	for _, key := range keys {
		if err := fs.storage.Delete(ctx, key); err != nil {
			fs.log.WithError(err).WithFields(logrus.Fields{"file_id": id, "key": key}).Error("Failed to delete stored object")
			return utils.NewUpstreamError("Failed to delete file from storage", err)
		}
	}

	err = fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tagIDs []string
		if err := tx.Table("file_tags").Where("file_id = ?", id).Pluck("tag_id", &tagIDs).Error; err != nil {
			return fmt.Errorf("failed to load file tags: %w", err)
		}
		if err := tx.Delete(file).Error; err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return fs.tags.Recount(ctx, tx, tagIDs)
	})
	if err != nil {
		return err
	}

	fs.log.WithFields(logrus.Fields{"file_id": id, "user_id": actor.UserID()}).Info("File deleted")
	fs.activities.Record(ctx, actor, models.ActionFileDelete, models.ResourceFile, id, map[string]interface{}{
		"originalName": file.OriginalName,
	})
	return nil
}

// increment bumps a counter atomically. Failures are logged and reported as false.
func (fs *FileService) increment(ctx context.Context, id, column string) bool {
	err := fs.db.WithContext(ctx).Model(&models.File{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
	if err != nil {
		fs.log.WithError(err).WithFields(logrus.Fields{"file_id": id, "counter": column}).Warn("Failed to increment file counter")
		return false
	}
	return true
}

func (fs *FileService) load(ctx context.Context, id string) (*models.File, error) {
	var file models.File
	if err := withFileRelations(fs.db.WithContext(ctx)).First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("File not found")
		}
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	return &file, nil
}

func (fs *FileService) putFile(ctx context.Context, key, path string, size int64, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open staged file: %w", err)
	}
	defer f.Close()

	if size < 0 {
		if stat, err := f.Stat(); err == nil {
			size = stat.Size()
		}
	}

	if err := fs.storage.Put(ctx, key, f, size, contentType); err != nil {
		fs.log.WithError(err).WithField("key", key).Error("Failed to store object")
		return utils.NewUpstreamError("Failed to store file", err)
	}
	return nil
}

func (fs *FileService) removeStaged(logger *logrus.Entry, paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WithError(err).WithField("path", path).Warn("Failed to remove staged file")
		}
	}
}

// removeStored deletes objects written for an upload that did not complete.
// It runs detached from the request context, which may already be cancelled.
func (fs *FileService) removeStored(logger *logrus.Entry, keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := fs.storage.Delete(ctx, key); err != nil {
			logger.WithError(err).WithField("key", key).Warn("Failed to remove orphaned object")
		}
	}
}

func stageFile(path string, reader io.Reader) (int64, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to stage upload: %w", err)
	}

	size, err := io.Copy(out, reader)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stage upload: %w", err)
	}
	return size, nil
}

// detectMIME sniffs the staged content. Generic results defer to the type
// the client declared, so enrichment still runs for mislabelled media.
func detectMIME(path, declared string) (string, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to detect file type: %w", err)
	}
	return resolveMIME(detected.String(), declared), nil
}

func resolveMIME(detected, declared string) string {
	detected = baseMIME(detected)
	declared = baseMIME(declared)
	if declared != "" && declared != genericMIME && (detected == genericMIME || detected == plainTextMIME) {
		return declared
	}
	if detected == "" {
		return genericMIME
	}
	return detected
}

func baseMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

func withFileRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Uploader").
		Preload("Folder").
		Preload("Program").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		})
}

func findFile(ctx context.Context, db *gorm.DB, id string) (*models.File, error) {
	var file models.File
	if err := db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("File not found")
		}
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	return &file, nil
}
