package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/parkwatch"
	"github.com/dukerupert/parkwatch/internal/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
)

type photoUploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// handleUploadPhoto stores one evidence photo from the multipart field
// "image". The camera then references the returned URL in the photos list
// of the incident it creates.
func (s *Server) handleUploadPhoto(c echo.Context) error {
	if s.fileStorage == nil {
		return parkwatch.Internal("photo storage not configured", nil)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return parkwatch.Invalid("No file uploaded")
	}
	if fh.Size > parkwatch.MaxPhotoSize {
		return parkwatch.Invalid("File too large (max 10MB)")
	}

	file, err := fh.Open()
	if err != nil {
		return parkwatch.Internal("open uploaded file", err)
	}
	defer file.Close()

	// The declared Content-Type is not trusted; sniff the bytes instead.
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return parkwatch.Internal("detect content type", err)
	}
	contentType := mtype.String()
	ext, ok := parkwatch.PhotoExtension(contentType)
	if !ok {
		return parkwatch.Invalid("Invalid file type (only JPEG, PNG, WebP allowed)")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return parkwatch.Internal("rewind uploaded file", err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	key := storage.PhotoKey(s.Now(), ext)
	url, err := s.fileStorage.Upload(ctx, key, file, contentType)
	if err != nil {
		return parkwatch.Internal("upload photo", err)
	}

	s.log(c).Info("photo uploaded",
		slog.String("key", key),
		slog.String("content_type", contentType),
		slog.Int64("size", fh.Size),
	)
	return c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: "Photo uploaded successfully",
		Data:    photoUploadResponse{URL: url, Key: key},
	})
}
