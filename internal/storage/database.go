package storage

import (
	"NYCU-SDC/survey-backend/internal/file"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type FileStore interface {
	SaveFile(ctx context.Context, fileContent io.Reader, originalFilename, contentType string, uploadedBy *uuid.UUID, opts ...file.ValidatorOption) (file.File, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DatabaseStorage keeps blobs in the files table and serves them from /api/files/{id}
type DatabaseStorage struct {
	logger  *zap.Logger
	tracer  trace.Tracer
	files   FileStore
	baseURL string
}

func NewDatabaseStorage(logger *zap.Logger, files FileStore, baseURL string) *DatabaseStorage {
	return &DatabaseStorage{
		logger:  logger,
		tracer:  otel.Tracer("storage/database"),
		files:   files,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *DatabaseStorage) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "Upload")
	defer span.End()

	saved, err := s.files.SaveFile(traceCtx, bytes.NewReader(data), filename, contentType, nil)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	return fmt.Sprintf("%s/api/files/%s", s.baseURL, saved.ID), nil
}

func (s *DatabaseStorage) Delete(ctx context.Context, url string) error {
	traceCtx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	segment, err := lastSegment(url)
	if err != nil {
		span.RecordError(err)
		return err
	}

	id, err := uuid.Parse(segment)
	if err != nil {
		logger.Warn("Blob url does not end in a file id", zap.String("url", url))
		span.RecordError(err)
		return err
	}

	return s.files.Delete(traceCtx, id)
}
