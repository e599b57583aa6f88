package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvcms/config"
)

func TestWasabiEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.eu-central-1.wasabisys.com", WasabiEndpoint("eu-central-1"))
	assert.Equal(t, "https://s3.wasabisys.com", WasabiEndpoint("mars-1"))
}

func TestCompatibleProviders(t *testing.T) {
	backend, err := NewStorage(&config.Config{
		StorageProvider: config.StorageWasabi,
		AWSRegion:       "eu-west-1",
		AWSBucketName:   "tv-archive",
	})
	require.NoError(t, err)
	assert.Equal(t, "wasabi", backend.Name())
	assert.Equal(t, "https://s3.eu-west-1.wasabisys.com/tv-archive/uploads/a.mp4", backend.URL("uploads/a.mp4"))

	backend, err = NewStorage(&config.Config{
		StorageProvider: config.StorageR2,
		AWSBucketName:   "tv-archive",
		R2AccountID:     "abc123",
	})
	require.NoError(t, err)
	assert.Equal(t, "r2", backend.Name())
	assert.Equal(t, "https://abc123.r2.cloudflarestorage.com/tv-archive/uploads/a.mp4", backend.URL("uploads/a.mp4"))

	_, err = NewStorage(&config.Config{StorageProvider: config.StorageR2, AWSBucketName: "tv-archive"})
	assert.Error(t, err)
}
