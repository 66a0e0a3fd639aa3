package parkwatch

import (
	"context"
	"io"
)

// FileStorage stores evidence photos uploaded by the camera pipeline.
type FileStorage interface {
	// Upload writes reader under key and returns its public URL.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (url string, err error)

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL of key without touching the backend.
	GetURL(key string) string

	Exists(ctx context.Context, key string) (bool, error)
}

// StorageConfig selects and configures a FileStorage backend.
type StorageConfig struct {
	Provider string // "local" or "s3"

	LocalPath string
	LocalURL  string

	S3Bucket  string
	S3Region  string
	S3BaseURL string
}

// MaxPhotoSize caps a single evidence upload.
const MaxPhotoSize = 10 << 20

var acceptedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoExtension returns the file extension for an accepted photo content
// type, and false for anything else.
func PhotoExtension(contentType string) (string, bool) {
	ext, ok := acceptedPhotoTypes[contentType]
	return ext, ok
}
