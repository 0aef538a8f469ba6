package oauthprovider

import (
	"NYCU-SDC/survey-backend/internal/user"
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type GoogleConfig struct {
	config      *oauth2.Config
	userInfoURL string
}

type GoogleOauth struct {
	ClientID     string `yaml:"client_id"     envconfig:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"GOOGLE_OAUTH_CLIENT_SECRET"`
}

func NewGoogleConfig(clientID, clientSecret, redirectURL string) *GoogleConfig {
	return &GoogleConfig{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleConfig) Name() string {
	return "google"
}

func (g *GoogleConfig) Config() *oauth2.Config {
	return g.config
}

func (g *GoogleConfig) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	return g.config.Exchange(ctx, code, opts...)
}

// GoogleUserInfo represents the OpenID Connect userinfo response
type GoogleUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GetUserInfo fetches the profile from Google's userinfo endpoint, Google users have no external handle
func (g *GoogleConfig) GetUserInfo(ctx context.Context, token *oauth2.Token) (user.User, user.Auth, error) {
	var googleUser GoogleUserInfo
	err := fetchProfile(ctx, g.config, token, g.userInfoURL, "Google", &googleUser)
	if err != nil {
		return user.User{}, user.Auth{}, err
	}

	userInfo := user.User{
		Name:      text(googleUser.Name),
		AvatarUrl: text(googleUser.Picture),
	}

	authInfo := user.Auth{
		Provider:   "google",
		ProviderID: googleUser.Sub,
	}

	return userInfo, authInfo, nil
}
