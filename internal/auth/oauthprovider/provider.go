package oauthprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/oauth2"
)

// fetchProfile calls a provider's profile endpoint with the exchanged token and decodes the JSON body into out
func fetchProfile(ctx context.Context, config *oauth2.Config, token *oauth2.Token, url string, providerName string, out any) error {
	client := config.Client(ctx, token)

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to get %s user info: %v", providerName, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s user info: %v", providerName, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to get %s user info: status %d: %s", providerName, resp.StatusCode, string(body))
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s user info: %v", providerName, err)
	}

	return nil
}

func text(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}
