package storage

import (
	"context"
	"io"
)

const (
	// UploadPrefix holds original media objects
	UploadPrefix = "uploads/"
	// ThumbnailPrefix holds generated preview images
	ThumbnailPrefix = "thumbnails/"
)

// Storage is the physical object store behind file records
type Storage interface {
	// Put writes the object, replacing any existing object with the same key
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object; deleting a missing object is not an error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns the address clients use to reach the object
	URL(key string) string
	Name() string
	HealthCheck(ctx context.Context) error
}

// StorageError represents storage-specific errors
type StorageError struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Key      string `json:"key,omitempty"`
	Err      error  `json:"-"`
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return e.Provider + " " + e.Code + " (" + e.Key + "): " + e.Message
	}
	return e.Provider + " " + e.Code + ": " + e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error
func NewStorageError(provider, code, key string, err error) *StorageError {
	message := code
	if err != nil {
		message = err.Error()
	}
	return &StorageError{
		Provider: provider,
		Code:     code,
		Message:  message,
		Key:      key,
		Err:      err,
	}
}

// ObjectKey returns the key for an uploaded object
func ObjectKey(storageName string) string {
	return UploadPrefix + storageName
}

// ThumbnailKey returns the key for a generated thumbnail
func ThumbnailKey(thumbnailName string) string {
	return ThumbnailPrefix + thumbnailName
}
