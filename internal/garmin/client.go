// Package garmin implements the Garmin Connect integration: OAuth 1.0a
// request signing, the three-step token exchange, and the signed activities
// fetch. API reference: https://developer.garmin.com/health-api/overview/
package garmin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the client's endpoints and consumer credentials. Built once
// at startup from internal/config and passed in; tests construct it against
// an httptest server.
type Config struct {
	Credentials     Credentials
	RequestTokenURL string
	AuthorizeURL    string
	AccessTokenURL  string
	APIBaseURL      string
	Timeout         time.Duration
}

// Client issues signed requests against the Garmin OAuth and wellness APIs.
// It performs no retries: a failed handshake step is restarted by the user
// and the activities import is idempotent, so repeating is always safe.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// AuthorizeURL returns the user-facing authorization URL for a request
// token.
func (c *Client) AuthorizeURL(requestToken string) string {
	return c.cfg.AuthorizeURL + "?oauth_token=" + url.QueryEscape(requestToken)
}

// RequestToken performs step 1 of the handshake: obtain a short-lived
// request token pair, announcing callbackURL as the redirect-back target.
func (c *Client) RequestToken(ctx context.Context, callbackURL string) (*Token, error) {
	return c.obtainToken(
		ctx,
		"request_token",
		c.cfg.RequestTokenURL,
		map[string]string{"oauth_callback": callbackURL},
		nil,
	)
}

// ExchangeToken performs step 3: trade the request token pair plus the
// user-approved verifier for the long-lived access token pair.
func (c *Client) ExchangeToken(
	ctx context.Context,
	requestToken *Token,
	verifier string,
) (*Token, error) {
	return c.obtainToken(
		ctx,
		"access_token",
		c.cfg.AccessTokenURL,
		map[string]string{"oauth_verifier": verifier},
		requestToken,
	)
}

// obtainToken POSTs a signed request to a token endpoint and parses the
// form-encoded oauth_token/oauth_token_secret response.
func (c *Client) obtainToken(
	ctx context.Context,
	op, endpoint string,
	extraOAuth map[string]string,
	token *Token,
) (*Token, error) {
	params, err := freshParams()
	if err != nil {
		return nil, err
	}
	header, err := authorizationHeader(
		http.MethodPost, endpoint, c.cfg.Credentials, extraOAuth, nil, token, params,
	)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("garmin: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("garmin: reading %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	key := values.Get("oauth_token")
	secret := values.Get("oauth_token_secret")
	if key == "" || secret == "" {
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &Token{Key: key, Secret: secret}, nil
}

// FetchActivities issues a signed GET for activities uploaded in the epoch
// window [start, end]. The window parameters are part of the signature base
// string as well as the query string.
func (c *Client) FetchActivities(
	ctx context.Context,
	access *Token,
	start, end time.Time,
) ([]Activity, error) {
	if access == nil || access.Key == "" || access.Secret == "" {
		return nil, ErrNotConnected
	}

	baseURL := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/activities"
	query := map[string]string{
		"uploadStartTimeInSeconds": strconv.FormatInt(start.Unix(), 10),
		"uploadEndTimeInSeconds":   strconv.FormatInt(end.Unix(), 10),
	}

	params, err := freshParams()
	if err != nil {
		return nil, err
	}
	header, err := authorizationHeader(
		http.MethodGet, baseURL, c.cfg.Credentials, nil, query, access, params,
	)
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, baseURL+"?"+values.Encode(), nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("garmin: activities request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("garmin: reading activities response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Op: "activities", StatusCode: resp.StatusCode, Body: string(body)}
	}

	activities, err := decodeActivities(body)
	if err != nil {
		return nil, &UpstreamError{Op: "activities", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return activities, nil
}
