package jwt

import (
	"NYCU-SDC/survey-backend/internal/user"

	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/golang-jwt/jwt/v5"
)

const Issuer = "survey-backend"

const stateExpiration = 5 * time.Minute

type Querier interface {
	GetUserIDByTokenID(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	Create(ctx context.Context, arg CreateParams) (RefreshToken, error)
	Inactivate(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context) (int64, error)
	GetRefreshTokenByID(ctx context.Context, id uuid.UUID) (RefreshToken, error)
}

type Service struct {
	logger                 *zap.Logger
	secret                 string
	accessTokenExpiration  time.Duration
	refreshTokenExpiration time.Duration
	queries                Querier
	tracer                 trace.Tracer
}

func NewService(
	logger *zap.Logger,
	db DBTX,
	secret string,
	accessTokenExpiration time.Duration,
	refreshTokenExpiration time.Duration,
) *Service {
	return &Service{
		logger:                 logger,
		queries:                New(db),
		tracer:                 otel.Tracer("jwt/service"),
		secret:                 secret,
		accessTokenExpiration:  accessTokenExpiration,
		refreshTokenExpiration: refreshTokenExpiration,
	}
}

type claims struct {
	ID             uuid.UUID
	Name           string
	AvatarUrl      string
	ExternalHandle string
	jwt.RegisteredClaims
}

// stateClaims is encoded into the OAuth 'state' parameter as a signed JWT
type stateClaims struct {
	// Provider is the OAuth provider the flow was started with
	Provider string

	// RedirectURL is the frontend page to send the user to after authentication completes
	RedirectURL string

	jwt.RegisteredClaims
}

func (s Service) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrSignatureInvalid
	}
	return []byte(s.secret), nil
}

func (s Service) New(ctx context.Context, user user.User) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "New")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	jwtID := uuid.New()
	id := user.ID

	claims := &claims{
		ID:             jwtID,
		Name:           user.Name.String,
		AvatarUrl:      user.AvatarUrl.String,
		ExternalHandle: user.ExternalHandle.String,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.String(), // user id
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.accessTokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			ID:        jwtID.String(), // jwt id
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		logger.Error("failed to sign token", zap.Error(err), zap.String("user_id", id.String()))
		return "", err
	}

	logger.Debug("Generated JWT token", zap.String("id", id.String()))
	return tokenString, nil
}

func (s Service) NewState(ctx context.Context, provider, redirectURL string) (string, error) {
	traceCtx, span := s.tracer.Start(ctx, "NewState")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	id := uuid.New()
	claims := &stateClaims{
		Provider:    provider,
		RedirectURL: redirectURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(stateExpiration)),
			NotBefore: jwt.NewNumericDate(time.Now()),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        id.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		logger.Error("failed to sign state token", zap.Error(err), zap.String("provider", provider))
		return "", err
	}

	logger.Debug("Generated OAuth state token", zap.String("provider", provider))
	return tokenString, nil
}

// logParseError logs a jwt parse failure at a level matching its cause
func logParseError(logger *zap.Logger, token *jwt.Token, err error) {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		logger.Warn("Failed to parse JWT token due to malformed structure, this is not a JWT token", zap.String("error", err.Error()))
	case errors.Is(err, jwt.ErrSignatureInvalid):
		logger.Warn("Failed to parse JWT token due to invalid signature", zap.String("error", err.Error()))
	case errors.Is(err, jwt.ErrTokenExpired):
		if token == nil {
			logger.Warn("Failed to parse JWT token due to expired timestamp", zap.String("error", err.Error()))
			return
		}
		expiredTime, getErr := token.Claims.GetExpirationTime()
		if getErr != nil || expiredTime == nil {
			logger.Warn("Failed to parse JWT token due to expired timestamp", zap.String("error", err.Error()))
			return
		}
		logger.Warn("Failed to parse JWT token due to expired timestamp", zap.String("error", err.Error()), zap.Time("expired_at", expiredTime.Time))
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		logger.Warn("Failed to parse JWT token due to not valid yet timestamp", zap.String("error", err.Error()))
	default:
		logger.Error("Failed to parse JWT token", zap.Error(err))
	}
}

func (s Service) Parse(ctx context.Context, tokenString string) (user.User, error) {
	traceCtx, span := s.tracer.Start(ctx, "Parse")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	tokenClaims := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, tokenClaims, s.keyFunc, jwt.WithIssuer(Issuer))
	if err != nil {
		logParseError(logger, token, err)
		return user.User{}, err
	}

	userID, err := uuid.Parse(tokenClaims.Subject)
	if err != nil {
		logger.Error("Failed to parse user ID from JWT subject", zap.Error(err))
		return user.User{}, err
	}

	return user.User{
		ID:             userID,
		Name:           pgtype.Text{String: tokenClaims.Name, Valid: tokenClaims.Name != ""},
		AvatarUrl:      pgtype.Text{String: tokenClaims.AvatarUrl, Valid: tokenClaims.AvatarUrl != ""},
		ExternalHandle: pgtype.Text{String: tokenClaims.ExternalHandle, Valid: tokenClaims.ExternalHandle != ""},
	}, nil
}

// ParseState verifies the state token and returns the provider and redirect URL it carries
func (s Service) ParseState(ctx context.Context, tokenString string) (string, string, error) {
	traceCtx, span := s.tracer.Start(ctx, "ParseState")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	tokenClaims := &stateClaims{}
	token, err := jwt.ParseWithClaims(tokenString, tokenClaims, s.keyFunc, jwt.WithIssuer(Issuer))
	if err != nil {
		logParseError(logger, token, err)
		return "", "", err
	}

	logger.Debug("Successfully parsed OAuth state token", zap.String("provider", tokenClaims.Provider), zap.String("redirect_url", tokenClaims.RedirectURL))
	return tokenClaims.Provider, tokenClaims.RedirectURL, nil
}

func (s Service) GetUserIDByRefreshToken(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetUserIDByRefreshToken")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	userID, err := s.queries.GetUserIDByTokenID(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "refresh_tokens", "id", id.String(), logger, "get user id by refresh token")
		span.RecordError(err)
		return uuid.UUID{}, err
	}

	return userID, nil
}

func (s Service) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (RefreshToken, error) {
	traceCtx, span := s.tracer.Start(ctx, "GenerateRefreshToken")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	rowsAffected, err := s.DeleteExpiredRefreshTokens(traceCtx)
	if err != nil {
		logger.Error("failed to delete expired refresh tokens", zap.Error(err))
	}
	if rowsAffected > 0 {
		logger.Info("deleted expired refresh tokens", zap.Int64("rows_affected", rowsAffected))
	}

	refreshToken, err := s.queries.Create(traceCtx, CreateParams{
		UserID: userID,
		ExpirationDate: pgtype.Timestamptz{
			Time:  time.Now().Add(s.refreshTokenExpiration),
			Valid: true,
		},
	})
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "generate refresh token")
		span.RecordError(err)
		return RefreshToken{}, err
	}
	return refreshToken, nil
}

func (s Service) InactivateRefreshToken(ctx context.Context, id uuid.UUID) error {
	traceCtx, span := s.tracer.Start(ctx, "InactivateRefreshToken")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	_, err := s.queries.Inactivate(traceCtx, id)
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "refresh_tokens", "id", id.String(), logger, "inactivate refresh token")
		span.RecordError(err)
		return err
	}

	return nil
}

func (s Service) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	traceCtx, span := s.tracer.Start(ctx, "DeleteExpiredRefreshTokens")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	rowsAffected, err := s.queries.Delete(traceCtx)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "delete expired refresh tokens")
		span.RecordError(err)
		return 0, err
	}

	return rowsAffected, nil
}
