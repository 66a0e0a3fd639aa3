// Package storage keeps evidence photos on local disk or in S3.
package storage

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/parkwatch"
	"github.com/oklog/ulid/v2"
)

// NewFileStorage returns the backend selected by cfg.Provider.
func NewFileStorage(ctx context.Context, logger *slog.Logger, cfg parkwatch.StorageConfig) (parkwatch.FileStorage, error) {
	switch cfg.Provider {
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 storage requires a bucket")
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.S3Region))
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}

		logger.Info("initialized S3 storage",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return NewS3Storage(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Region, cfg.S3BaseURL), nil

	case "", "local":
		st, err := NewLocalStorage(cfg.LocalPath, cfg.LocalURL)
		if err != nil {
			return nil, err
		}
		logger.Info("initialized local storage",
			slog.String("path", cfg.LocalPath),
			slog.String("url", cfg.LocalURL),
		)
		return st, nil

	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// PhotoKey returns a new object key for an evidence photo. Keys sort by
// upload time.
func PhotoKey(t time.Time, ext string) string {
	return "incidents/" + strings.ToLower(ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()) + ext
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
