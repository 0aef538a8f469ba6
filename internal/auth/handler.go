package auth

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/auth/oauthprovider"
	"NYCU-SDC/survey-backend/internal/jwt"
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	AccessTokenCookieName  = jwt.AccessTokenCookieName
	RefreshTokenCookieName = "refresh_token"
	VerifierCookieName     = "oauth_verifier"

	verifierCookiePath   = "/api/auth/login/oauth"
	verifierCookieMaxAge = 5 * time.Minute
)

type JWTIssuer interface {
	New(ctx context.Context, user user.User) (string, error)
	NewState(ctx context.Context, provider, redirectURL string) (string, error)
	ParseState(ctx context.Context, tokenString string) (string, string, error)
	GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (jwt.RefreshToken, error)
	GetUserIDByRefreshToken(ctx context.Context, refreshTokenID uuid.UUID) (uuid.UUID, error)
}

type JWTStore interface {
	InactivateRefreshToken(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	FindOrCreate(ctx context.Context, name, externalHandle, avatarUrl, oauthProvider, oauthProviderID string) (uuid.UUID, error)
}

type OAuthProvider interface {
	Name() string
	Config() *oauth2.Config
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
	GetUserInfo(ctx context.Context, token *oauth2.Token) (user.User, user.Auth, error)
}

type CallBackInfo struct {
	code       string
	oauthError string
	provider   string
	redirectTo string
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	baseURL string
	devMode bool

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	userStore UserStore
	jwtIssuer JWTIssuer
	jwtStore  JWTStore
	provider  map[string]OAuthProvider

	accessTokenExpiration  time.Duration
	refreshTokenExpiration time.Duration
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	userStore UserStore,
	jwtIssuer JWTIssuer,
	jwtStore JWTStore,
	providers map[string]OAuthProvider,

	baseURL string,
	devMode bool,

	accessTokenExpiration time.Duration,
	refreshTokenExpiration time.Duration,
) *Handler {
	return &Handler{
		logger: logger,
		tracer: otel.Tracer("auth/handler"),

		baseURL: baseURL,
		devMode: devMode,

		validator:     validator,
		problemWriter: problemWriter,

		userStore: userStore,
		jwtIssuer: jwtIssuer,
		jwtStore:  jwtStore,
		provider:  providers,

		accessTokenExpiration:  accessTokenExpiration,
		refreshTokenExpiration: refreshTokenExpiration,
	}
}

// Oauth2Start initiates the OAuth2 flow by redirecting the user to the provider's authorization URL.
// Every provider runs the PKCE variant, the verifier travels in a short-lived HttpOnly cookie.
func (h *Handler) Oauth2Start(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Oauth2Start")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	providerName := r.PathValue("provider")
	provider := h.provider[providerName]
	if provider == nil {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: provider not found: %s", internal.ErrProviderNotFound, providerName), logger)
		return
	}

	redirectURL := safeRedirect(r.URL.Query().Get("r"))

	state, err := h.jwtIssuer.NewState(traceCtx, providerName, redirectURL)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: %v", internal.ErrNewStateFailed, err), logger)
		return
	}

	verifier := oauth2.GenerateVerifier()
	http.SetCookie(w, &http.Cookie{
		Name:     VerifierCookieName,
		Value:    verifier,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		Path:     verifierCookiePath,
		MaxAge:   int(verifierCookieMaxAge.Seconds()),
	})

	authURL := provider.Config().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Callback")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	providerName := r.PathValue("provider")
	provider := h.provider[providerName]
	if provider == nil {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: provider not found: %s", internal.ErrProviderNotFound, providerName), logger)
		return
	}

	callbackInfo, err := h.GetCallBackInfo(traceCtx, r.URL)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: %v", internal.ErrInvalidCallbackInfo, err), logger)
		return
	}

	if callbackInfo.provider != providerName {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: state was issued for %s", internal.ErrInvalidCallbackInfo, callbackInfo.provider), logger)
		return
	}

	if callbackInfo.oauthError != "" {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: %s", internal.ErrOAuthError, callbackInfo.oauthError), logger)
		return
	}

	verifierCookie, err := r.Cookie(VerifierCookieName)
	if err != nil || verifierCookie.Value == "" {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: missing PKCE verifier", internal.ErrInvalidCallbackInfo), logger)
		return
	}
	h.clearVerifierCookie(w)

	token, err := provider.Exchange(traceCtx, callbackInfo.code, oauth2.VerifierOption(verifierCookie.Value))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: %v", internal.ErrInvalidExchangeToken, err), logger)
		return
	}

	userInfo, authInfo, err := provider.GetUserInfo(traceCtx, token)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, fmt.Errorf("%w: %v", internal.ErrOAuthError, err), logger)
		return
	}

	userID, err := h.userStore.FindOrCreate(traceCtx, userInfo.Name.String, userInfo.ExternalHandle.String, userInfo.AvatarUrl.String, providerName, authInfo.ProviderID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	accessToken, refreshTokenID, err := h.generateJWT(traceCtx, userID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	baseURL, err := url.Parse(h.baseURL)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInternalServerError, logger)
		return
	}

	h.setAccessAndRefreshCookies(w, baseURL.Hostname(), accessToken, refreshTokenID)

	redirectURL := callbackInfo.redirectTo
	if redirectURL == "" {
		redirectURL = "/"
	}

	logger.Info("User signed in", zap.String("user_id", userID.String()), zap.String("provider", providerName))
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h *Handler) generateJWT(ctx context.Context, userID uuid.UUID) (string, string, error) {
	traceCtx, span := h.tracer.Start(ctx, "generateJWT")
	defer span.End()

	userEntity, err := h.userStore.GetByID(traceCtx, userID)
	if err != nil {
		return "", "", err
	}

	jwtToken, err := h.jwtIssuer.New(traceCtx, userEntity)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := h.jwtIssuer.GenerateRefreshToken(traceCtx, userID)
	if err != nil {
		return "", "", err
	}

	return jwtToken, refreshToken.ID.String(), nil
}

func (h *Handler) GetCallBackInfo(ctx context.Context, url *url.URL) (CallBackInfo, error) {
	code := url.Query().Get("code")
	state := url.Query().Get("state")
	oauthError := url.Query().Get("error")

	provider, redirectURL, err := h.jwtIssuer.ParseState(ctx, state)
	if err != nil {
		return CallBackInfo{}, err
	}

	return CallBackInfo{
		code:       code,
		oauthError: oauthError,
		provider:   provider,
		redirectTo: safeRedirect(redirectURL),
	}, nil
}

// safeRedirect only keeps same-origin paths so the login flow cannot be used as an open redirect
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return ""
	}
	return target
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "Logout")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	refreshTokenCookie, err := r.Cookie(RefreshTokenCookieName)
	if err != nil {
		logger.Debug("No refresh token cookie during logout")
		h.clearAccessAndRefreshCookies(w)
		handlerutil.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
		return
	}

	refreshTokenID, err := uuid.Parse(refreshTokenCookie.Value)
	if err != nil {
		logger.Warn("Invalid refresh token format during logout", zap.Error(err))
	} else {
		err = h.jwtStore.InactivateRefreshToken(traceCtx, refreshTokenID)
		if err != nil {
			logger.Warn("Failed to inactivate refresh token during logout", zap.Error(err))
		}
	}

	h.clearAccessAndRefreshCookies(w)
	handlerutil.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "RefreshToken")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	refreshTokenCookie, err := r.Cookie(RefreshTokenCookieName)
	if err != nil || refreshTokenCookie.Value == "" {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrMissingAuthHeader, logger)
		return
	}

	refreshTokenID, err := uuid.Parse(refreshTokenCookie.Value)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidAuthHeaderFormat, logger)
		return
	}

	userID, err := h.jwtIssuer.GetUserIDByRefreshToken(traceCtx, refreshTokenID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidRefreshToken, logger)
		return
	}

	err = h.jwtStore.InactivateRefreshToken(traceCtx, refreshTokenID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInternalServerError, logger)
		return
	}

	newAccessToken, newRefreshTokenID, err := h.generateJWT(traceCtx, userID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	baseURL, err := url.Parse(h.baseURL)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInternalServerError, logger)
		return
	}

	h.setAccessAndRefreshCookies(w, baseURL.Hostname(), newAccessToken, newRefreshTokenID)

	w.WriteHeader(http.StatusNoContent)
}

// InternalAPITokenLogin signs in an existing user by id, only mounted in dev mode
func (h *Handler) InternalAPITokenLogin(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "APITokenLogin")
	defer span.End()
	logger := logutil.WithContext(traceCtx, h.logger)

	if !h.devMode {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrNotFound, logger)
		return
	}

	var req struct {
		UserIDStr string `json:"uid" validate:"required,uuid"`
	}
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	uid, err := uuid.Parse(req.UserIDStr)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidAuthHeaderFormat, logger)
		return
	}

	exists, err := h.userStore.ExistsByID(traceCtx, uid)
	if err != nil || !exists {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrUserNotFound, logger)
		return
	}

	jwtToken, refreshTokenID, err := h.generateJWT(traceCtx, uid)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidJWTToken, logger)
		return
	}

	baseURL, err := url.Parse(h.baseURL)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, internal.ErrInternalServerError, logger)
		return
	}

	h.setAccessAndRefreshCookies(w, baseURL.Hostname(), jwtToken, refreshTokenID)

	handlerutil.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Login successful"})
}

// setAccessAndRefreshCookies sets the access/refresh cookies with HTTP-only and secure flags
func (h *Handler) setAccessAndRefreshCookies(w http.ResponseWriter, domain, accessToken, refreshTokenID string) {
	var sameSite http.SameSite
	if h.devMode {
		sameSite = http.SameSiteNoneMode
	} else {
		sameSite = http.SameSiteLaxMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookieName,
		Value:    accessToken,
		HttpOnly: true,
		Secure:   true,
		SameSite: sameSite,
		Path:     "/",
		MaxAge:   int(h.accessTokenExpiration.Seconds()),
		Domain:   domain,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookieName,
		Value:    refreshTokenID,
		HttpOnly: true,
		Secure:   true,
		SameSite: sameSite,
		Path:     "/api/auth",
		MaxAge:   int(h.refreshTokenExpiration.Seconds()),
		Domain:   domain,
	})
}

// clearAccessAndRefreshCookies sets the access/refresh cookies to empty values and negative MaxAge
// negative means the cookies will be deleted, zero means the cookies will expire at the end of the session
func (h *Handler) clearAccessAndRefreshCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookieName,
		Value:    "",
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearVerifierCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     VerifierCookieName,
		Value:    "",
		Path:     verifierCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CreateAuthProviders creates the OAuth providers that have credentials configured
func CreateAuthProviders(
	logger *zap.Logger,
	baseURL string,
	googleOauthConfig oauthprovider.GoogleOauth,
	githubOauthConfig oauthprovider.GitHubOauth,
	twitterOauthConfig oauthprovider.TwitterOauth,
) map[string]OAuthProvider {
	providers := make(map[string]OAuthProvider)

	callbackURL := func(name string) string {
		return fmt.Sprintf("%s/api/auth/login/oauth/%s/callback", baseURL, name)
	}

	if googleOauthConfig.ClientID != "" && googleOauthConfig.ClientSecret != "" {
		providers["google"] = oauthprovider.NewGoogleConfig(googleOauthConfig.ClientID, googleOauthConfig.ClientSecret, callbackURL("google"))
		logger.Info("Google OAuth provider configured", zap.String("callbackURL", callbackURL("google")))
	}

	if githubOauthConfig.ClientID != "" && githubOauthConfig.ClientSecret != "" {
		providers["github"] = oauthprovider.NewGitHubConfig(githubOauthConfig.ClientID, githubOauthConfig.ClientSecret, callbackURL("github"))
		logger.Info("GitHub OAuth provider configured", zap.String("callbackURL", callbackURL("github")))
	}

	if twitterOauthConfig.ClientID != "" && twitterOauthConfig.ClientSecret != "" {
		providers["twitter"] = oauthprovider.NewTwitterConfig(twitterOauthConfig.ClientID, twitterOauthConfig.ClientSecret, callbackURL("twitter"))
		logger.Info("Twitter OAuth provider configured", zap.String("callbackURL", callbackURL("twitter")))
	}

	if len(providers) == 0 {
		logger.Warn("No OAuth providers configured for authentication")
	}

	return providers
}
