// Package auth provides the Google OAuth 2.0 sign-in provider. The Garmin
// integration is OAuth 1.0a and lives in internal/garmin; the two do not
// share code.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleProviderConfig contains configuration for the Google sign-in
// provider.
type GoogleProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// GoogleUserInfo contains the profile fields consumed from Google.
type GoogleUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
}

// GoogleProvider handles the Google sign-in OAuth flow.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a Google sign-in provider.
func NewGoogleProvider(cfg GoogleProviderConfig) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// GetAuthURL returns the authorization URL for the given CSRF state.
func (p *GoogleProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for an access token.
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

type googleUser struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GetUserInfo retrieves the signed-in user's profile from Google.
func (p *GoogleProvider) GetUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*GoogleUserInfo, error) {
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Google API error: %s - %s", resp.Status, string(body))
	}

	var user googleUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	if user.Email == "" {
		return nil, fmt.Errorf("Google account has no email address")
	}

	return &GoogleUserInfo{
		ProviderUserID: user.ID,
		Email:          user.Email,
		Name:           user.Name,
		AvatarURL:      user.Picture,
	}, nil
}
