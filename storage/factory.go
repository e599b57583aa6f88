package storage

import (
	"fmt"

	"tvcms/config"
)

// NewStorage creates the storage backend selected by STORAGE_PROVIDER
func NewStorage(cfg *config.Config) (Storage, error) {
	switch cfg.StorageProvider {
	case config.StorageLocal:
		return NewLocalClient(cfg.UploadPath, cfg.PublicBaseURL)
	case config.StorageS3:
		return NewS3Client(s3ConfigFrom(cfg))
	case config.StorageWasabi:
		return NewWasabiClient(s3ConfigFrom(cfg))
	case config.StorageR2:
		return NewR2Client(s3ConfigFrom(cfg), cfg.R2AccountID)
	default:
		return nil, fmt.Errorf("unsupported storage provider type: %s", cfg.StorageProvider)
	}
}

func s3ConfigFrom(cfg *config.Config) S3Config {
	return S3Config{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Bucket:          cfg.AWSBucketName,
		Endpoint:        cfg.S3Endpoint,
		PublicURL:       cfg.S3PublicURL,
	}
}
