package storage

import (
	"NYCU-SDC/survey-backend/internal"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LocalStorage writes blobs into a directory and serves them from /api/uploads/{name}
type LocalStorage struct {
	logger  *zap.Logger
	tracer  trace.Tracer
	dir     string
	baseURL string
}

func NewLocalStorage(logger *zap.Logger, dir, baseURL string) (*LocalStorage, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}

	return &LocalStorage{
		logger:  logger,
		tracer:  otel.Tracer("storage/local"),
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "Upload")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	name := sanitizeName(filename)
	err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644)
	if err != nil {
		logger.Error("Failed to write upload", zap.Error(err), zap.String("name", name))
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", internal.ErrFailedToSaveFile, err)
	}

	logger.Debug("Stored upload on disk", zap.String("name", name), zap.String("content_type", contentType), zap.Int("size", len(data)))
	return s.baseURL + "/api/uploads/" + name, nil
}

func (s *LocalStorage) Delete(ctx context.Context, url string) error {
	_, span := s.tracer.Start(ctx, "Delete")
	defer span.End()

	name, err := lastSegment(url)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = os.Remove(filepath.Join(s.dir, sanitizeName(name)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		span.RecordError(err)
		return fmt.Errorf("%w: %v", internal.ErrFailedToDeleteFile, err)
	}

	return nil
}

// Handler serves files written by LocalStorage
type Handler struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	problemWriter *problem.HttpWriter
	dir           string
}

func NewHandler(logger *zap.Logger, problemWriter *problem.HttpWriter, dir string) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("storage/handler"),
		problemWriter: problemWriter,
		dir:           dir,
	}
}

// Serve handles GET /api/uploads/{name}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Serve")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	name := r.PathValue("name")
	if name == "" || name != sanitizeName(name) {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrFileNotFound, logger)
		return
	}

	fullPath := filepath.Join(h.dir, name)
	if _, err := os.Stat(fullPath); err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrFileNotFound, logger)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, fullPath)
}
