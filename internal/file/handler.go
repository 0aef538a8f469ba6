package file

import (
	"NYCU-SDC/survey-backend/internal"
	"bytes"
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (File, error)
	GetMetadataByID(ctx context.Context, id uuid.UUID) (GetMetadataByIDRow, error)
}

type Handler struct {
	logger        *zap.Logger
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	store         Store
	tracer        trace.Tracer
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	store Store,
) *Handler {
	return &Handler{
		logger:        logger,
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		tracer:        otel.Tracer("file/handler"),
	}
}

type Response struct {
	ID               string  `json:"id"`
	OriginalFilename string  `json:"originalFilename"`
	ContentType      string  `json:"contentType"`
	Size             int64   `json:"size"`
	UploadedBy       *string `json:"uploadedBy,omitempty"`
	CreatedAt        string  `json:"createdAt"`
}

func toResponse(id uuid.UUID, filename, contentType string, size int64, uploadedBy pgtype.UUID, createdAt pgtype.Timestamptz) Response {
	var uploadedByStr *string
	if uploadedBy.Valid {
		str := uuid.UUID(uploadedBy.Bytes).String()
		uploadedByStr = &str
	}

	return Response{
		ID:               id.String(),
		OriginalFilename: filename,
		ContentType:      contentType,
		Size:             size,
		UploadedBy:       uploadedByStr,
		CreatedAt:        createdAt.Time.Format(time.RFC3339),
	}
}

// Download handles GET /api/files/{id}, serving the blob inline so it can back an <img> tag
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Download")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	fileID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidFileID, logger)
		return
	}

	fileInfo, err := h.store.GetByID(traceCtx, fileID)
	if err != nil {
		if !errors.Is(err, internal.ErrFileNotFound) {
			span.RecordError(err)
		}
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	w.Header().Set("Content-Type", fileInfo.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": fileInfo.OriginalFilename}))
	w.Header().Set("Content-Length", strconv.FormatInt(fileInfo.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")

	http.ServeContent(w, r, fileInfo.OriginalFilename, fileInfo.CreatedAt.Time, bytes.NewReader(fileInfo.Data))
}

// GetByID handles GET /api/files/{id}/info, returning metadata without the binary data
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetByID")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	fileID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidFileID, logger)
		return
	}

	fileInfo, err := h.store.GetMetadataByID(traceCtx, fileID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, toResponse(fileInfo.ID, fileInfo.OriginalFilename, fileInfo.ContentType, fileInfo.Size, fileInfo.UploadedBy, fileInfo.CreatedAt))
}
