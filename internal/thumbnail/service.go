package thumbnail

import (
	"NYCU-SDC/survey-backend/internal"
	"context"
	"fmt"
	"strings"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Service struct {
	logger *zap.Logger
	tracer trace.Tracer
	cache  Cache
	render func(title string) ([]byte, error)
}

// NewService renders title cards; cache may be nil
func NewService(logger *zap.Logger, cache Cache) *Service {
	return &Service{
		logger: logger,
		tracer: otel.Tracer("thumbnail/service"),
		cache:  cache,
		render: Render,
	}
}

// Get returns the PNG title card for title. Cache failures degrade to rendering.
func (s *Service) Get(ctx context.Context, title string) ([]byte, error) {
	traceCtx, span := s.tracer.Start(ctx, "Get")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, internal.ErrThumbnailTitleRequired
	}

	key := Key(title)
	if s.cache != nil {
		data, ok, err := s.cache.Get(traceCtx, key)
		if err != nil {
			logger.Warn("Failed to read thumbnail cache", zap.String("key", key), zap.Error(err))
		} else if ok {
			return data, nil
		}
	}

	data, err := s.render(title)
	if err != nil {
		err = fmt.Errorf("%w: %w", internal.ErrThumbnailRenderFailed, err)
		logger.Error("Failed to render thumbnail", zap.String("key", key), zap.Error(err))
		span.RecordError(err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(traceCtx, key, data); err != nil {
			logger.Warn("Failed to write thumbnail cache", zap.String("key", key), zap.Error(err))
		}
	}

	return data, nil
}
