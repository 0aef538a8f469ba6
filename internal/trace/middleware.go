package trace

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"NYCU-SDC/survey-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Middleware struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	problemWriter *problem.HttpWriter
	debug         bool
}

func NewMiddleware(logger *zap.Logger, debug bool) *Middleware {
	return &Middleware{
		logger:        logger,
		tracer:        otel.Tracer("trace/middleware"),
		problemWriter: internal.NewProblemWriter(),
		debug:         debug,
	}
}

// RecoverMiddleware turns a panic in a handler into a 500 problem response
func (m *Middleware) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger := logutil.WithContext(r.Context(), m.logger)
				fields := []zap.Field{
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				}
				if m.debug {
					fields = append(fields, zap.ByteString("stack", debug.Stack()))
				}
				logger.Error("Recovered from panic", fields...)

				m.problemWriter.WriteError(r.Context(), w, fmt.Errorf("%w: %v", internal.ErrInternalServerError, rec), logger)
			}
		}()

		next(w, r)
	}
}

// TraceMiddleware extracts the propagated trace context and opens a server span for the request
func (m *Middleware) TraceMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		traceCtx, span := m.tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.target", r.URL.Path),
			attribute.String("http.user_agent", r.UserAgent()),
		)

		if m.debug {
			logutil.WithContext(traceCtx, m.logger).Debug("Incoming request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
		}

		next(w, r.WithContext(traceCtx))
	}
}
