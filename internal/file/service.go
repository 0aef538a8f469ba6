package file

import (
	"NYCU-SDC/survey-backend/internal"
	"context"
	"errors"
	"fmt"
	"io"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (File, error)
	GetByID(ctx context.Context, id uuid.UUID) (File, error)
	GetMetadataByID(ctx context.Context, id uuid.UUID) (GetMetadataByIDRow, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	logger    *zap.Logger
	queries   Querier
	tracer    trace.Tracer
	validator *Validator
}

func NewService(logger *zap.Logger, db DBTX) *Service {
	return &Service{
		logger:    logger,
		queries:   New(db),
		tracer:    otel.Tracer("file/service"),
		validator: NewValidator(),
	}
}

// SaveFile stores the blob in Postgres, running the validator first when options are given.
// uploadedBy is nil for system uploads.
func (s *Service) SaveFile(ctx context.Context, fileContent io.Reader, originalFilename, contentType string, uploadedBy *uuid.UUID, opts ...ValidatorOption) (File, error) {
	traceCtx, span := s.tracer.Start(ctx, "SaveFile")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	data, err := s.validator.ValidateStream(fileContent, contentType, opts...)
	if err != nil {
		logger.Warn("File validation failed", zap.Error(err), zap.String("original_filename", originalFilename))
		span.RecordError(err)
		return File{}, err
	}

	var pgUploadedBy pgtype.UUID
	if uploadedBy != nil {
		pgUploadedBy = pgtype.UUID{Bytes: *uploadedBy, Valid: true}
	}

	file, err := s.queries.Create(traceCtx, CreateParams{
		OriginalFilename: originalFilename,
		ContentType:      contentType,
		Size:             int64(len(data)),
		Data:             data,
		UploadedBy:       pgUploadedBy,
	})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "create file record")
		span.RecordError(err)
		return File{}, fmt.Errorf("%w: %v", internal.ErrFailedToSaveFile, err)
	}

	logger.Info("File saved successfully",
		zap.String("file_id", file.ID.String()),
		zap.String("original_filename", originalFilename),
		zap.Int64("size", file.Size),
	)

	return file, nil
}

// GetByID retrieves a file record with data by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (File, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	file, err := s.queries.GetByID(traceCtx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, internal.ErrFileNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "files", "id", id.String(), logger, "get file by id")
		span.RecordError(err)
		return File{}, err
	}

	return file, nil
}

// GetMetadataByID retrieves file metadata without the binary data
func (s *Service) GetMetadataByID(ctx context.Context, id uuid.UUID) (GetMetadataByIDRow, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetMetadataByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	metadata, err := s.queries.GetMetadataByID(traceCtx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GetMetadataByIDRow{}, internal.ErrFileNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "files", "id", id.String(), logger, "get file metadata by id")
		span.RecordError(err)
		return GetMetadataByIDRow{}, err
	}

	return metadata, nil
}

// Delete removes a file, deleting one that is already gone is not an error
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	traceCtx, span := s.tracer.Start(ctx, "Delete")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	if err := s.queries.Delete(traceCtx, id); err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "files", "id", id.String(), logger, "delete file")
		span.RecordError(err)
		return fmt.Errorf("%w: %v", internal.ErrFailedToDeleteFile, err)
	}

	logger.Info("File deleted successfully", zap.String("file_id", id.String()))
	return nil
}
