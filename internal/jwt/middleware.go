package jwt

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"net/http"
	"strings"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const AccessTokenCookieName = "access_token"

type Parser interface {
	Parse(ctx context.Context, tokenString string) (user.User, error)
}

type Middleware struct {
	logger        *zap.Logger
	tracer        trace.Tracer
	validator     *validator.Validate
	problemWriter *problem.HttpWriter
	parser        Parser
}

func NewMiddleware(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	parser Parser,
) Middleware {
	return Middleware{
		logger:        logger,
		tracer:        otel.Tracer("jwt/middleware"),
		validator:     validator,
		problemWriter: problemWriter,
		parser:        parser,
	}
}

// tokenFromRequest reads the access token from the cookie first and falls back to the Authorization header
func tokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(AccessTokenCookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", internal.ErrMissingAuthHeader
	}

	if !strings.HasPrefix(header, "Bearer ") || strings.TrimPrefix(header, "Bearer ") == "" {
		return "", internal.ErrInvalidAuthHeaderFormat
	}

	return strings.TrimPrefix(header, "Bearer "), nil
}

// AuthenticateMiddleware rejects requests without a valid access token
func (m Middleware) AuthenticateMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "AuthenticateMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		token, err := tokenFromRequest(r)
		if err != nil {
			m.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}

		u, err := m.parser.Parse(traceCtx, token)
		if err != nil {
			logger.Debug("Rejected request with invalid access token", zap.Error(err))
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidJWTToken, logger)
			return
		}

		next(w, r.WithContext(user.WithUser(r.Context(), &u)))
	}
}

// OptionalAuthenticateMiddleware attaches the user when a valid token is present and
// lets anonymous requests through untouched
func (m Middleware) OptionalAuthenticateMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "OptionalAuthenticateMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		token, err := tokenFromRequest(r)
		if err != nil {
			next(w, r)
			return
		}

		u, err := m.parser.Parse(traceCtx, token)
		if err != nil {
			logger.Debug("Ignoring invalid access token on optional route", zap.Error(err))
			next(w, r)
			return
		}

		next(w, r.WithContext(user.WithUser(r.Context(), &u)))
	}
}
