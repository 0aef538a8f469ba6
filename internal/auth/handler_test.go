package auth

import (
	"NYCU-SDC/survey-backend/internal"
	"NYCU-SDC/survey-backend/internal/jwt"
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type mockJWT struct {
	mock.Mock
}

func (m *mockJWT) New(ctx context.Context, u user.User) (string, error) {
	args := m.Called(ctx, u)
	return args.String(0), args.Error(1)
}

func (m *mockJWT) NewState(ctx context.Context, provider, redirectURL string) (string, error) {
	args := m.Called(ctx, provider, redirectURL)
	return args.String(0), args.Error(1)
}

func (m *mockJWT) ParseState(ctx context.Context, tokenString string) (string, string, error) {
	args := m.Called(ctx, tokenString)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockJWT) GenerateRefreshToken(ctx context.Context, userID uuid.UUID) (jwt.RefreshToken, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(jwt.RefreshToken), args.Error(1)
}

func (m *mockJWT) GetUserIDByRefreshToken(ctx context.Context, refreshTokenID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, refreshTokenID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockJWT) InactivateRefreshToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUserStore) FindOrCreate(ctx context.Context, name, externalHandle, avatarUrl, oauthProvider, oauthProviderID string) (uuid.UUID, error) {
	args := m.Called(ctx, name, externalHandle, avatarUrl, oauthProvider, oauthProviderID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type stubProvider struct {
	config      *oauth2.Config
	gotVerifier bool
	userInfo    user.User
	authInfo    user.Auth
	exchangeErr error
	userInfoErr error
}

func (s *stubProvider) Name() string { return "github" }

func (s *stubProvider) Config() *oauth2.Config { return s.config }

func (s *stubProvider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	s.gotVerifier = len(opts) > 0
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return &oauth2.Token{AccessToken: "provider-token"}, nil
}

func (s *stubProvider) GetUserInfo(ctx context.Context, token *oauth2.Token) (user.User, user.Auth, error) {
	return s.userInfo, s.authInfo, s.userInfoErr
}

func newTestHandler(t *testing.T, provider *stubProvider) (*Handler, *mockJWT, *mockUserStore) {
	t.Helper()
	jwtMock := &mockJWT{}
	userMock := &mockUserStore{}

	h := NewHandler(
		zap.NewNop(),
		internal.NewValidator(),
		internal.NewProblemWriter(),
		userMock,
		jwtMock,
		jwtMock,
		map[string]OAuthProvider{"github": provider},
		"http://localhost:8080",
		false,
		15*time.Minute,
		time.Hour,
	)
	h.tracer = noop.NewTracerProvider().Tracer("test")
	return h, jwtMock, userMock
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		config: &oauth2.Config{
			ClientID:    "client",
			RedirectURL: "http://localhost:8080/api/auth/login/oauth/github/callback",
			Endpoint:    oauth2.Endpoint{AuthURL: "https://github.example/authorize", TokenURL: "https://github.example/token"},
		},
		userInfo: user.User{
			Name:           pgtype.Text{String: "Alice", Valid: true},
			ExternalHandle: pgtype.Text{String: "alice", Valid: true},
		},
		authInfo: user.Auth{Provider: "github", ProviderID: "42"},
	}
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandler_Oauth2Start(t *testing.T) {
	h, jwtMock, _ := newTestHandler(t, newStubProvider())
	jwtMock.On("NewState", mock.Anything, "github", "/survey/abc").Return("signed-state", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/login/oauth/github?r=/survey/abc", nil)
	req.SetPathValue("provider", "github")
	rec := httptest.NewRecorder()

	h.Oauth2Start(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "signed-state", location.Query().Get("state"))
	require.Equal(t, "S256", location.Query().Get("code_challenge_method"))
	require.NotEmpty(t, location.Query().Get("code_challenge"))

	verifier := findCookie(rec.Result().Cookies(), VerifierCookieName)
	require.NotNil(t, verifier)
	require.True(t, verifier.HttpOnly)
	require.NotEmpty(t, verifier.Value)
}

func TestHandler_Oauth2Start_UnknownProvider(t *testing.T) {
	h, _, _ := newTestHandler(t, newStubProvider())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/login/oauth/myspace", nil)
	req.SetPathValue("provider", "myspace")
	rec := httptest.NewRecorder()

	h.Oauth2Start(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Callback(t *testing.T) {
	userID := uuid.New()

	testCases := []struct {
		name             string
		stateProvider    string
		withVerifier     bool
		query            string
		exchangeErr      error
		expectedStatus   int
		expectedLocation string
	}{
		{
			name:             "signs the user in",
			stateProvider:    "github",
			withVerifier:     true,
			query:            "code=abc&state=signed-state",
			expectedStatus:   http.StatusFound,
			expectedLocation: "/survey/abc",
		},
		{
			name:           "state issued for another provider",
			stateProvider:  "google",
			withVerifier:   true,
			query:          "code=abc&state=signed-state",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing verifier cookie",
			stateProvider:  "github",
			query:          "code=abc&state=signed-state",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "provider returned an error",
			stateProvider:  "github",
			withVerifier:   true,
			query:          "error=access_denied&state=signed-state",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "exchange fails",
			stateProvider:  "github",
			withVerifier:   true,
			query:          "code=abc&state=signed-state",
			exchangeErr:    errors.New("bad code"),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := newStubProvider()
			provider.exchangeErr = tc.exchangeErr
			h, jwtMock, userMock := newTestHandler(t, provider)

			jwtMock.On("ParseState", mock.Anything, "signed-state").Return(tc.stateProvider, "/survey/abc", nil)
			userMock.On("FindOrCreate", mock.Anything, "Alice", "alice", "", "github", "42").Return(userID, nil)
			userMock.On("GetByID", mock.Anything, userID).Return(user.User{ID: userID}, nil)
			jwtMock.On("New", mock.Anything, user.User{ID: userID}).Return("access-token", nil)
			jwtMock.On("GenerateRefreshToken", mock.Anything, userID).Return(jwt.RefreshToken{ID: uuid.New(), UserID: userID}, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/auth/login/oauth/github/callback?"+tc.query, nil)
			req.SetPathValue("provider", "github")
			if tc.withVerifier {
				req.AddCookie(&http.Cookie{Name: VerifierCookieName, Value: oauth2.GenerateVerifier()})
			}
			rec := httptest.NewRecorder()

			h.Callback(rec, req)

			require.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectedStatus != http.StatusFound {
				return
			}

			require.Equal(t, tc.expectedLocation, rec.Header().Get("Location"))
			require.True(t, provider.gotVerifier)
			access := findCookie(rec.Result().Cookies(), AccessTokenCookieName)
			require.NotNil(t, access)
			require.Equal(t, "access-token", access.Value)
			require.NotNil(t, findCookie(rec.Result().Cookies(), RefreshTokenCookieName))
		})
	}
}

func TestHandler_RefreshToken(t *testing.T) {
	userID := uuid.New()
	oldToken := uuid.New()

	testCases := []struct {
		name           string
		cookie         string
		lookupErr      error
		expectedStatus int
	}{
		{name: "rotates the refresh token", cookie: oldToken.String(), expectedStatus: http.StatusNoContent},
		{name: "missing cookie", expectedStatus: http.StatusUnauthorized},
		{name: "malformed cookie", cookie: "nope", expectedStatus: http.StatusUnauthorized},
		{name: "unknown token", cookie: oldToken.String(), lookupErr: errors.New("no rows"), expectedStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h, jwtMock, userMock := newTestHandler(t, newStubProvider())
			jwtMock.On("GetUserIDByRefreshToken", mock.Anything, oldToken).Return(userID, tc.lookupErr)
			jwtMock.On("InactivateRefreshToken", mock.Anything, oldToken).Return(nil)
			userMock.On("GetByID", mock.Anything, userID).Return(user.User{ID: userID}, nil)
			jwtMock.On("New", mock.Anything, user.User{ID: userID}).Return("access-token", nil)
			jwtMock.On("GenerateRefreshToken", mock.Anything, userID).Return(jwt.RefreshToken{ID: uuid.New()}, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: RefreshTokenCookieName, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()

			h.RefreshToken(rec, req)

			require.Equal(t, tc.expectedStatus, rec.Code)
			if tc.expectedStatus == http.StatusNoContent {
				jwtMock.AssertCalled(t, "InactivateRefreshToken", mock.Anything, oldToken)
			}
		})
	}
}

func TestHandler_Logout(t *testing.T) {
	h, jwtMock, _ := newTestHandler(t, newStubProvider())
	tokenID := uuid.New()
	jwtMock.On("InactivateRefreshToken", mock.Anything, tokenID).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookieName, Value: tokenID.String()})
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	jwtMock.AssertExpectations(t)
	access := findCookie(rec.Result().Cookies(), AccessTokenCookieName)
	require.NotNil(t, access)
	require.Equal(t, -1, access.MaxAge)
}

func TestSafeRedirect(t *testing.T) {
	testCases := map[string]string{
		"/survey/abc":          "/survey/abc",
		"":                     "",
		"https://evil.example": "",
		"//evil.example":       "",
		"/\\evil.example":      "",
	}

	for input, expected := range testCases {
		t.Run(input, func(t *testing.T) {
			require.Equal(t, expected, safeRedirect(input))
		})
	}
}
