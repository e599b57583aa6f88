package config

import (
	"fmt"
	"strings"
)

const (
	StorageLocal  = "local"
	StorageS3     = "s3"
	StorageWasabi = "wasabi"
	StorageR2     = "r2"
)

// IsAllowedFileType reports whether a MIME type passes ALLOWED_FILE_TYPES.
// Entries are exact types ("video/mp4") or category wildcards ("video/*").
// An empty list allows everything.
func (c *Config) IsAllowedFileType(mimeType string) bool {
	if len(c.AllowedFileTypes) == 0 {
		return true
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	for _, allowed := range c.AllowedFileTypes {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "*" || allowed == "*/*" || allowed == mimeType {
			return true
		}
		if category, ok := strings.CutSuffix(allowed, "/*"); ok && strings.HasPrefix(mimeType, category+"/") {
			return true
		}
	}
	return false
}

func (c *Config) validateStorage() error {
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize)
	}

	switch c.StorageProvider {
	case StorageLocal:
		if c.UploadPath == "" {
			return fmt.Errorf("UPLOAD_PATH is required for local storage")
		}
	case StorageS3, StorageWasabi:
		if c.AWSBucketName == "" {
			return fmt.Errorf("AWS_BUCKET_NAME is required for %s storage", c.StorageProvider)
		}
		if c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required for %s storage", c.StorageProvider)
		}
	case StorageR2:
		if c.AWSBucketName == "" {
			return fmt.Errorf("AWS_BUCKET_NAME is required for r2 storage")
		}
		if c.R2AccountID == "" && c.S3Endpoint == "" {
			return fmt.Errorf("R2_ACCOUNT_ID or S3_ENDPOINT is required for r2 storage")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER: %s", c.StorageProvider)
	}

	if c.TempPath == "" {
		return fmt.Errorf("TEMP_PATH is required")
	}
	return nil
}
