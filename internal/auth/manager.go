package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"chief/internal/cli"
	"chief/internal/config"
)

// OAuth client registration for the CLI.
const (
	// ClientID is the OAuth client identifier registered for this CLI.
	ClientID = "clichief"

	// Scopes are the scopes requested on every grant.
	Scopes = "profile email teams offline_access domainchief"

	// DefaultDiscoveryURL is the OpenID configuration document for the
	// Chief Tools account service.
	DefaultDiscoveryURL = "https://account.chief.app/.well-known/openid-configuration"
)

// DefaultHTTPTimeout is the default timeout for individual HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// deviceCodeGrantType is the grant type for device-authorization token polls.
const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// Metadata is the subset of the OpenID configuration document the CLI uses.
// It is fetched lazily, once per Manager instance, and never persisted.
type Metadata struct {
	TokenEndpoint               string `json:"token_endpoint"`
	DeviceAuthorizationEndpoint string `json:"device_authorization_endpoint"`
	UserinfoEndpoint            string `json:"userinfo_endpoint"`
	RevocationEndpoint          string `json:"revocation_endpoint,omitempty"`
	IntrospectionEndpoint       string `json:"introspection_endpoint,omitempty"`
}

// DeviceAuthorization is an ephemeral device-authorization session. It is
// valid for ExpiresIn seconds from issuance and discarded once polling
// terminates.
type DeviceAuthorization struct {
	DeviceCode              string `json:"device_code"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	UserCode                string `json:"user_code,omitempty"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`

	issuedAt time.Time
}

// Team is a team membership as reported by the userinfo endpoint.
type Team struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// UserInfo is the identity document returned by the userinfo endpoint.
type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Teams []Team `json:"teams"`
}

// TokenEndpointError is returned when the token endpoint answers with a
// non-success HTTP status. The Transport uses the status to distinguish a
// rejected refresh token (4xx) from server-side failures.
type TokenEndpointError struct {
	StatusCode  int
	Code        string
	Description string
}

// Error formats the token endpoint failure.
func (e *TokenEndpointError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("token endpoint returned %d: %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("token endpoint returned %d", e.StatusCode)
}

// tokenResponse is the token endpoint's answer for both device-code polls
// and refresh grants.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Manager drives the OAuth2 device flow, token refresh, and team-context
// tracking. It reads and writes credentials through the config store at call
// time; there is no mutable shared HTTP client to rebuild when credentials
// change.
type Manager struct {
	store        *config.Store
	httpClient   *http.Client
	discoveryURL string
	userAgent    string

	discoverOnce sync.Once
	metadata     *Metadata
	discoverErr  error

	// sleep and now are injectable for deterministic polling tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets a custom HTTP client (used by tests).
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithDiscoveryURL overrides the OpenID configuration URL.
func WithDiscoveryURL(u string) Option {
	return func(m *Manager) { m.discoveryURL = u }
}

// WithUserAgent sets the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(m *Manager) { m.userAgent = ua }
}

// NewManager creates a Manager backed by the given credential store.
func NewManager(store *config.Store, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		httpClient:   &http.Client{Timeout: DefaultHTTPTimeout},
		discoveryURL: DefaultDiscoveryURL,
		userAgent:    "ChiefToolsCLI/dev (+https://aka.chief.app/cli)",
		sleep:        time.Sleep,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// UserAgent returns the User-Agent string the Manager sends.
func (m *Manager) UserAgent() string {
	return m.userAgent
}

// Discover fetches the OpenID configuration document. The result is memoized
// for the lifetime of the Manager instance.
func (m *Manager) Discover(ctx context.Context) (*Metadata, error) {
	m.discoverOnce.Do(func() {
		m.metadata, m.discoverErr = m.fetchMetadata(ctx)
	})
	return m.metadata, m.discoverErr
}

func (m *Manager) fetchMetadata(ctx context.Context) (*Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, cli.ClassifyConnectionError(err, m.discoveryURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openid configuration request failed with status %d", resp.StatusCode)
	}

	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to parse openid configuration: %w", err)
	}

	switch {
	case meta.TokenEndpoint == "":
		return nil, &cli.ResponseFormatError{Endpoint: "openid configuration", Field: "token_endpoint"}
	case meta.DeviceAuthorizationEndpoint == "":
		return nil, &cli.ResponseFormatError{Endpoint: "openid configuration", Field: "device_authorization_endpoint"}
	case meta.UserinfoEndpoint == "":
		return nil, &cli.ResponseFormatError{Endpoint: "openid configuration", Field: "userinfo_endpoint"}
	}

	slog.Debug("discovered openid configuration", "url", m.discoveryURL)
	return &meta, nil
}

// postJSON issues a JSON POST and returns the raw response. The caller owns
// the response body.
func (m *Manager) postJSON(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", m.userAgent)

	return m.httpClient.Do(req)
}

// InitiateDeviceAuth requests a new device-authorization session.
// A response missing any required field is a fatal format error.
func (m *Manager) InitiateDeviceAuth(ctx context.Context) (*DeviceAuthorization, error) {
	meta, err := m.Discover(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := m.postJSON(ctx, meta.DeviceAuthorizationEndpoint, map[string]string{
		"client_id": ClientID,
		"scope":     Scopes,
	})
	if err != nil {
		return nil, cli.ClassifyConnectionError(err, meta.DeviceAuthorizationEndpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device authorization request failed with status %d", resp.StatusCode)
	}

	var da DeviceAuthorization
	if err := json.NewDecoder(resp.Body).Decode(&da); err != nil {
		return nil, fmt.Errorf("failed to parse device authorization response: %w", err)
	}

	switch {
	case da.DeviceCode == "":
		return nil, &cli.ResponseFormatError{Endpoint: "device authorization", Field: "device_code"}
	case da.VerificationURIComplete == "":
		return nil, &cli.ResponseFormatError{Endpoint: "device authorization", Field: "verification_uri_complete"}
	case da.ExpiresIn <= 0:
		return nil, &cli.ResponseFormatError{Endpoint: "device authorization", Field: "expires_in"}
	case da.Interval <= 0:
		return nil, &cli.ResponseFormatError{Endpoint: "device authorization", Field: "interval"}
	}

	da.issuedAt = m.now()

	slog.Debug("device authorization issued",
		"expires_in", da.ExpiresIn,
		"interval", da.Interval,
	)
	return &da, nil
}

// pollOnce performs a single token-poll attempt. The returned error covers
// transport-level failures only; OAuth error codes come back in the response.
func (m *Manager) pollOnce(ctx context.Context, meta *Metadata, da *DeviceAuthorization) (*tokenResponse, error) {
	resp, err := m.postJSON(ctx, meta.TokenEndpoint, map[string]string{
		"client_id":   ClientID,
		"device_code": da.DeviceCode,
		"grant_type":  deviceCodeGrantType,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// PollForToken polls the token endpoint until the user approves the device
// authorization, the server denies it, or the session expires.
//
// The returned token is nil (with a nil error) when the authorization was
// denied or the session expired; callers present this as "authentication
// request expired". Transport errors during an attempt are treated as
// transient. The wall-clock bound is checked at the top of each iteration,
// so a slow request may overrun expires_in slightly.
func (m *Manager) PollForToken(ctx context.Context, da *DeviceAuthorization) (*oauth2.Token, error) {
	meta, err := m.Discover(ctx)
	if err != nil {
		return nil, err
	}

	start := da.issuedAt
	if start.IsZero() {
		start = m.now()
	}
	deadline := start.Add(time.Duration(da.ExpiresIn) * time.Second)
	interval := time.Duration(da.Interval) * time.Second

	for m.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tr, err := m.pollOnce(ctx, meta, da)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Transient: network hiccups do not terminate the poll.
			slog.Debug("token poll attempt failed", "error", err.Error())
			m.sleep(interval)
			continue
		}

		if tr.Error == "" {
			token := &oauth2.Token{
				AccessToken:  tr.AccessToken,
				RefreshToken: tr.RefreshToken,
				TokenType:    "Bearer",
			}
			if tr.ExpiresIn > 0 {
				token.Expiry = m.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
			}
			return token, nil
		}

		if tr.Error != "authorization_pending" {
			slog.Debug("device authorization terminated", "error", tr.Error)
			return nil, nil
		}

		m.sleep(interval)
	}

	return nil, nil
}

// fetchUserInfo retrieves the identity document using an explicit bearer
// token. Used during login and refresh, before the token is persisted.
func (m *Manager) fetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	meta, err := m.Discover(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, cli.ClassifyConnectionError(err, meta.UserinfoEndpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
	}
	return &info, nil
}

// CompleteAuthentication fetches the identity for a freshly issued token,
// persists both tokens, and records the first team the server reports as the
// active team context.
func (m *Manager) CompleteAuthentication(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	info, err := m.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	if len(info.Teams) == 0 {
		return nil, &cli.ResponseFormatError{Endpoint: "userinfo", Field: "teams"}
	}

	team := info.Teams[0]
	if err := m.store.SetMany(map[string]string{
		config.KeyAccessToken:  token.AccessToken,
		config.KeyRefreshToken: token.RefreshToken,
		config.KeyTeamSlug:     team.Slug,
		config.KeyTeamName:     team.Name,
	}); err != nil {
		return nil, err
	}

	slog.Info("authentication complete", "team", team.Slug)
	return info, nil
}

// Refresh exchanges the stored refresh token for a new access token.
//
// It returns (false, nil) when no refresh token is stored; that is a normal
// "cannot refresh" signal, not an error. A token-endpoint rejection surfaces
// as *TokenEndpointError, and a token response without an access token is a
// fatal format error. On success the team context is re-derived from the
// userinfo endpoint and all credentials are persisted.
func (m *Manager) Refresh(ctx context.Context) (bool, error) {
	refreshToken := m.store.Get(config.KeyRefreshToken)
	if refreshToken == "" {
		return false, nil
	}

	meta, err := m.Discover(ctx)
	if err != nil {
		return false, err
	}

	resp, err := m.postJSON(ctx, meta.TokenEndpoint, map[string]string{
		"client_id":     ClientID,
		"refresh_token": refreshToken,
		"grant_type":    "refresh_token",
		"scope":         Scopes,
	})
	if err != nil {
		return false, cli.ClassifyConnectionError(err, meta.TokenEndpoint)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return false, fmt.Errorf("failed to parse token response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return false, &TokenEndpointError{
			StatusCode:  resp.StatusCode,
			Code:        tr.Error,
			Description: tr.ErrorDescription,
		}
	}

	if tr.AccessToken == "" {
		return false, &cli.ResponseFormatError{Endpoint: "token", Field: "access_token"}
	}

	// Some servers rotate the refresh token, some do not.
	newRefreshToken := tr.RefreshToken
	if newRefreshToken == "" {
		newRefreshToken = refreshToken
	}

	info, err := m.fetchUserInfo(ctx, tr.AccessToken)
	if err != nil {
		return false, err
	}
	if len(info.Teams) == 0 {
		return false, &cli.ResponseFormatError{Endpoint: "userinfo", Field: "teams"}
	}

	team := info.Teams[0]
	if err := m.store.SetMany(map[string]string{
		config.KeyAccessToken:  tr.AccessToken,
		config.KeyRefreshToken: newRefreshToken,
		config.KeyTeamSlug:     team.Slug,
		config.KeyTeamName:     team.Name,
	}); err != nil {
		return false, err
	}

	slog.Debug("access token refreshed", "team", team.Slug)
	return true, nil
}

// RevokeTokens asks the authorization server to revoke the stored session.
// Revoking the refresh token invalidates the access token server-side, so
// only one token is sent (refresh preferred). Errors are logged and
// swallowed: revocation is best-effort cleanup during logout.
func (m *Manager) RevokeTokens(ctx context.Context) {
	token := m.store.Get(config.KeyRefreshToken)
	if token == "" {
		token = m.store.Get(config.KeyAccessToken)
	}
	if token == "" {
		return
	}

	meta, err := m.Discover(ctx)
	if err != nil || meta.RevocationEndpoint == "" {
		slog.Debug("skipping token revocation", "reason", "no revocation endpoint")
		return
	}

	resp, err := m.postJSON(ctx, meta.RevocationEndpoint, map[string]string{
		"client_id": ClientID,
		"token":     token,
	})
	if err != nil {
		slog.Debug("token revocation failed", "error", err.Error())
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	slog.Debug("token revocation requested", "status", resp.StatusCode)
}

// IsAuthenticated reports whether an access token is stored.
func (m *Manager) IsAuthenticated() bool {
	return m.store.Has(config.KeyAccessToken)
}

// BearerToken returns the stored access token, or empty.
func (m *Manager) BearerToken() string {
	return m.store.Get(config.KeyAccessToken)
}

// TeamSlug returns the active team slug, or empty.
func (m *Manager) TeamSlug() string {
	return m.store.Get(config.KeyTeamSlug)
}

// TeamName returns the active team name, or empty.
func (m *Manager) TeamName() string {
	return m.store.Get(config.KeyTeamName)
}

// HasTeam reports whether a team context is stored.
func (m *Manager) HasTeam() bool {
	return m.store.Has(config.KeyTeamSlug)
}

// ClearAuthData resets the credential record to defaults (full logout).
func (m *Manager) ClearAuthData() error {
	return m.store.Reset()
}

// AuthenticatedClient returns an HTTP client that routes every request
// through the bearer Transport, including the single refresh-and-retry
// recovery on 401.
func (m *Manager) AuthenticatedClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultHTTPTimeout,
		Transport: &Transport{Manager: m},
	}
}

// UserInfo fetches the identity document through the authenticated pipeline.
func (m *Manager) UserInfo(ctx context.Context) (*UserInfo, error) {
	meta, err := m.Discover(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.AuthenticatedClient().Do(req)
	if err != nil {
		return nil, unwrapURLError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo response: %w", err)
	}
	return &info, nil
}
