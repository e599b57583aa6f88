package utils

import (
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	CategoryImage    = "image"
	CategoryVideo    = "video"
	CategoryAudio    = "audio"
	CategoryDocument = "document"
	CategoryText     = "text"
	CategoryArchive  = "archive"
	CategoryOther    = "other"
)

var (
	entropyOnce sync.Once
	entropyMu   sync.Mutex
	entropy     *ulid.MonotonicEntropy
)

func newEntropy() *ulid.MonotonicEntropy {
	entropyOnce.Do(func() {
		source := rand.NewSource(time.Now().UnixNano())
		entropy = ulid.Monotonic(rand.New(source), 0)
	})
	return entropy
}

// GenerateStorageName returns a unique object name built from a millisecond
// timestamp and a random suffix, keeping only the original extension.
func GenerateStorageName(originalName string) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), newEntropy())
	entropyMu.Unlock()

	return strings.ToLower(id.String()) + FileExtension(originalName)
}

// ThumbnailName derives the thumbnail object name for a storage name
func ThumbnailName(storageName string) string {
	base := strings.TrimSuffix(storageName, filepath.Ext(storageName))
	return "thumb_" + base + ".jpg"
}

// FileExtension returns the lowercase extension including the dot, or "" when absent
func FileExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if ext == "." {
		return ""
	}
	return ext
}

// GetFileCategory determines file category based on MIME type
func GetFileCategory(mimeType string) string {
	mimeType = strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return CategoryImage
	case strings.HasPrefix(mimeType, "video/"):
		return CategoryVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return CategoryAudio
	case strings.Contains(mimeType, "pdf"), strings.Contains(mimeType, "msword"), strings.Contains(mimeType, "officedocument"):
		return CategoryDocument
	case strings.HasPrefix(mimeType, "text/"):
		return CategoryText
	case strings.Contains(mimeType, "zip"), strings.Contains(mimeType, "archive"), strings.Contains(mimeType, "compressed"):
		return CategoryArchive
	}
	return CategoryOther
}

// CleanFileName strips any directory component and control characters from a client-supplied name
func CleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "file"
	}
	return name
}
