package storage

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/config"
	"bytes"
	"context"
	"fmt"
	"strings"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const publicReadPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"AWS": ["*"]},
      "Action": ["s3:GetObject"],
      "Resource": ["arn:aws:s3:::%s/*"]
    }
  ]
}`

// MinIOStorage puts blobs into an S3-compatible bucket that allows anonymous reads
type MinIOStorage struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinIOStorage(ctx context.Context, logger *zap.Logger, cfg config.MinIOConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	s := &MinIOStorage{
		logger:    logger,
		tracer:    otel.Tracer("storage/minio"),
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}

	err = s.ensureBucket(ctx)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// ensureBucket creates the bucket with a public-read policy the first time the backend starts
func (s *MinIOStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}

	err = s.client.SetBucketPolicy(ctx, s.bucket, fmt.Sprintf(publicReadPolicy, s.bucket))
	if err != nil {
		return fmt.Errorf("failed to set policy on bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Created MinIO bucket", zap.String("bucket", s.bucket))
	return nil
}

func (s *MinIOStorage) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "Upload")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	name := sanitizeName(filename)
	_, err := s.client.PutObject(traceCtx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		logger.Error("Failed to put object", zap.Error(err), zap.String("bucket", s.bucket), zap.String("name", name))
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", internal.ErrFailedToSaveFile, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, name), nil
}

func (s *MinIOStorage) Delete(ctx context.Context, url string) error {
	traceCtx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()

	name, err := lastSegment(url)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = s.client.RemoveObject(traceCtx, s.bucket, name, minio.RemoveObjectOptions{})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %v", internal.ErrFailedToDeleteFile, err)
	}

	return nil
}
