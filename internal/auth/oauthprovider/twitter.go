package oauthprovider

import (
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"strings"

	"golang.org/x/oauth2"
)

const twitterUserURL = "https://api.twitter.com/2/users/me?user.fields=profile_image_url"

type TwitterConfig struct {
	config      *oauth2.Config
	userInfoURL string
}

type TwitterOauth struct {
	ClientID     string `yaml:"client_id"     envconfig:"TWITTER_OAUTH_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"TWITTER_OAUTH_CLIENT_SECRET"`
}

// NewTwitterConfig builds an OAuth 2.0 config for X (Twitter), which only accepts PKCE flows
func NewTwitterConfig(clientID, clientSecret, redirectURL string) *TwitterConfig {
	return &TwitterConfig{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"users.read", "tweet.read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://twitter.com/i/oauth2/authorize",
				TokenURL:  "https://api.twitter.com/2/oauth2/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		userInfoURL: twitterUserURL,
	}
}

func (t *TwitterConfig) Name() string {
	return "twitter"
}

func (t *TwitterConfig) Config() *oauth2.Config {
	return t.config
}

func (t *TwitterConfig) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	return t.config.Exchange(ctx, code, opts...)
}

// TwitterUserInfo represents the response from the X users/me API
type TwitterUserInfo struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

// GetUserInfo fetches the signed-in X account, its username becomes the external handle
func (t *TwitterConfig) GetUserInfo(ctx context.Context, token *oauth2.Token) (user.User, user.Auth, error) {
	var twitterUser TwitterUserInfo
	err := fetchProfile(ctx, t.config, token, t.userInfoURL, "Twitter", &twitterUser)
	if err != nil {
		return user.User{}, user.Auth{}, err
	}

	// X serves a 48px "_normal" avatar by default
	avatar := strings.Replace(twitterUser.Data.ProfileImageURL, "_normal.", "_400x400.", 1)

	userInfo := user.User{
		Name:           text(twitterUser.Data.Name),
		ExternalHandle: text(twitterUser.Data.Username),
		AvatarUrl:      text(avatar),
	}

	authInfo := user.Auth{
		Provider:   "twitter",
		ProviderID: twitterUser.Data.ID,
	}

	return userInfo, authInfo, nil
}
