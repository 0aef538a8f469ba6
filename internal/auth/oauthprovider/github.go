package oauthprovider

import (
	"NYCU-SDC/survey-backend/internal/user"
	"context"
	"fmt"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const githubUserURL = "https://api.github.com/user"

type GitHubConfig struct {
	config      *oauth2.Config
	userInfoURL string
}

type GitHubOauth struct {
	ClientID     string `yaml:"client_id"     envconfig:"GITHUB_OAUTH_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" envconfig:"GITHUB_OAUTH_CLIENT_SECRET"`
}

func NewGitHubConfig(clientID, clientSecret, redirectURL string) *GitHubConfig {
	return &GitHubConfig{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"read:user",
			},
			Endpoint: githuboauth.Endpoint,
		},
		userInfoURL: githubUserURL,
	}
}

func (g *GitHubConfig) Name() string {
	return "github"
}

func (g *GitHubConfig) Config() *oauth2.Config {
	return g.config
}

func (g *GitHubConfig) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	return g.config.Exchange(ctx, code, opts...)
}

// GitHubUserInfo represents the response from GitHub's user API
type GitHubUserInfo struct {
	ID        int    `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// GetUserInfo fetches user information from GitHub's API, the login becomes the external handle
func (g *GitHubConfig) GetUserInfo(ctx context.Context, token *oauth2.Token) (user.User, user.Auth, error) {
	var githubUser GitHubUserInfo
	err := fetchProfile(ctx, g.config, token, g.userInfoURL, "GitHub", &githubUser)
	if err != nil {
		return user.User{}, user.Auth{}, err
	}

	name := githubUser.Name
	if name == "" {
		name = githubUser.Login
	}

	userInfo := user.User{
		Name:           text(name),
		ExternalHandle: text(githubUser.Login),
		AvatarUrl:      text(githubUser.AvatarURL),
	}

	authInfo := user.Auth{
		Provider:   "github",
		ProviderID: fmt.Sprintf("%d", githubUser.ID),
	}

	return userInfo, authInfo, nil
}
