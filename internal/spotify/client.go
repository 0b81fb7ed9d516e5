// Package spotify implements a minimal Spotify Web API client for the
// Client Credentials flow and playlist track retrieval.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"

	defaultRequestTimeout = 30 * time.Second
)

var (
	ErrAuthenticationFailed = errors.New("spotify authentication failed")
	ErrNoAccessToken        = errors.New("no access token in response")
	ErrNotAuthenticated     = errors.New("client not authenticated")
)

// PaginationPolicy controls how PlaylistTracks reacts to a mid-pagination
// transport failure.
type PaginationPolicy int

const (
	// BestEffort stops pagination and returns whatever was collected.
	// Partial playlists are still useful.
	BestEffort PaginationPolicy = iota

	// FailFast returns the partial result together with the error.
	FailFast
)

// Client talks to the Spotify Web API using the Client Credentials flow.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string
	accessToken  string
	policy       PaginationPolicy
}

// NewClient creates an unauthenticated client. Call Authenticate before
// any playlist method.
func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: defaultRequestTimeout},
		baseURL:      defaultBaseURL,
		tokenURL:     defaultTokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		policy:       BestEffort,
	}
}

// SetPaginationPolicy selects best-effort or fail-fast behaviour for
// playlist track retrieval.
func (c *Client) SetPaginationPolicy(policy PaginationPolicy) {
	c.policy = policy
}

// Authenticate requests an access token using the Client Credentials flow.
func (c *Client) Authenticate(ctx context.Context) error {
	auth := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: token endpoint returned %d: %s", ErrAuthenticationFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenInfo struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return fmt.Errorf("%w: decoding token response: %v", ErrAuthenticationFailed, err)
	}

	if tokenInfo.AccessToken == "" {
		return ErrNoAccessToken
	}

	c.accessToken = tokenInfo.AccessToken
	slog.Info("Authenticated with Spotify API")
	return nil
}

// get issues an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, requestURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// PlaylistInfo fetches basic playlist metadata.
func (c *Client) PlaylistInfo(ctx context.Context, playlistID string) (*PlaylistInfo, error) {
	if c.accessToken == "" {
		return nil, ErrNotAuthenticated
	}

	params := url.Values{
		"fields": {"name,description,owner(display_name),tracks(total),external_urls"},
	}
	requestURL := fmt.Sprintf("%s/playlists/%s?%s", c.baseURL, playlistID, params.Encode())

	var info PlaylistInfo
	if err := c.get(ctx, requestURL, &info); err != nil {
		return nil, fmt.Errorf("fetching playlist info: %w", err)
	}

	return &info, nil
}
