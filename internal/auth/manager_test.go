package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"chief/internal/cli"
	"chief/internal/config"
)

// authServer is a fake authorization server. Handlers left nil answer 404.
type authServer struct {
	*httptest.Server

	discoveryHits int

	deviceHandler   http.HandlerFunc
	tokenHandler    http.HandlerFunc
	userinfoHandler http.HandlerFunc
	revokeHandler   http.HandlerFunc
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()

	as := &authServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		as.discoveryHits++
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token_endpoint":                as.URL + "/oauth/token",
			"device_authorization_endpoint": as.URL + "/oauth/device",
			"userinfo_endpoint":             as.URL + "/oauth/userinfo",
			"revocation_endpoint":           as.URL + "/oauth/revoke",
		})
	})
	mux.HandleFunc("/oauth/device", func(w http.ResponseWriter, r *http.Request) {
		if as.deviceHandler == nil {
			http.NotFound(w, r)
			return
		}
		as.deviceHandler(w, r)
	})
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if as.tokenHandler == nil {
			http.NotFound(w, r)
			return
		}
		as.tokenHandler(w, r)
	})
	mux.HandleFunc("/oauth/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if as.userinfoHandler == nil {
			http.NotFound(w, r)
			return
		}
		as.userinfoHandler(w, r)
	})
	mux.HandleFunc("/oauth/revoke", func(w http.ResponseWriter, r *http.Request) {
		if as.revokeHandler == nil {
			http.NotFound(w, r)
			return
		}
		as.revokeHandler(w, r)
	})

	as.Server = httptest.NewServer(mux)
	t.Cleanup(as.Close)
	return as
}

func newTestManager(t *testing.T, as *authServer) (*Manager, *config.Store) {
	t.Helper()

	store, err := config.NewStore(t.TempDir())
	require.NoError(t, err)

	m := NewManager(store,
		WithDiscoveryURL(as.URL+"/.well-known/openid-configuration"),
		WithHTTPClient(as.Client()),
	)
	m.sleep = func(time.Duration) {}
	return m, store
}

func TestDiscoverIsMemoized(t *testing.T) {
	as := newAuthServer(t)
	m, _ := newTestManager(t, as)

	meta1, err := m.Discover(context.Background())
	require.NoError(t, err)
	meta2, err := m.Discover(context.Background())
	require.NoError(t, err)

	assert.Same(t, meta1, meta2)
	assert.Equal(t, 1, as.discoveryHits)
	assert.Equal(t, as.URL+"/oauth/token", meta1.TokenEndpoint)
}

func TestDiscoverMissingEndpointIsFormatError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		// No device_authorization_endpoint.
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token_endpoint":    "https://example.com/token",
			"userinfo_endpoint": "https://example.com/userinfo",
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	store, err := config.NewStore(t.TempDir())
	require.NoError(t, err)
	m := NewManager(store,
		WithDiscoveryURL(server.URL+"/.well-known/openid-configuration"),
		WithHTTPClient(server.Client()),
	)

	_, err = m.Discover(context.Background())
	var fe *cli.ResponseFormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "device_authorization_endpoint", fe.Field)
}

func TestInitiateDeviceAuth(t *testing.T) {
	as := newAuthServer(t)
	as.deviceHandler = func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, ClientID, payload["client_id"])
		assert.Equal(t, Scopes, payload["scope"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":               "dev-123",
			"verification_uri_complete": "https://account.chief.app/device?code=abc",
			"user_code":                 "ABC-DEF",
			"expires_in":                600,
			"interval":                  5,
		})
	}

	m, _ := newTestManager(t, as)
	da, err := m.InitiateDeviceAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev-123", da.DeviceCode)
	assert.Equal(t, 5, da.Interval)
	assert.False(t, da.issuedAt.IsZero())
}

func TestInitiateDeviceAuthMissingFieldIsFormatError(t *testing.T) {
	as := newAuthServer(t)
	as.deviceHandler = func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code": "dev-123",
			"expires_in":  600,
			"interval":    5,
		})
	}

	m, _ := newTestManager(t, as)
	_, err := m.InitiateDeviceAuth(context.Background())

	var fe *cli.ResponseFormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "verification_uri_complete", fe.Field)
}

func TestPollForTokenImmediateSuccess(t *testing.T) {
	as := newAuthServer(t)
	as.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:device_code", payload["grant_type"])
		assert.Equal(t, "dev-123", payload["device_code"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
		})
	}

	m, _ := newTestManager(t, as)
	token, err := m.PollForToken(context.Background(), &DeviceAuthorization{
		DeviceCode: "dev-123",
		ExpiresIn:  600,
		Interval:   5,
	})
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "at-1", token.AccessToken)
	assert.Equal(t, "rt-1", token.RefreshToken)
}

func TestPollForTokenWaitsWhilePending(t *testing.T) {
	as := newAuthServer(t)
	attempts := 0
	as.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authorization_pending"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1", "refresh_token": "rt-1"})
	}

	m, _ := newTestManager(t, as)
	var sleeps []time.Duration
	m.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	token, err := m.PollForToken(context.Background(), &DeviceAuthorization{
		DeviceCode: "dev-123",
		ExpiresIn:  600,
		Interval:   5,
	})
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, sleeps)
}

func TestPollForTokenRetriesAfterTransportError(t *testing.T) {
	as := newAuthServer(t)
	attempts := 0
	as.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		attempts++
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1", "refresh_token": "rt-1"})
	}

	m, _ := newTestManager(t, as)

	// Drop the first token request at the transport level; everything else
	// reaches the server untouched.
	failures := 1
	base := as.Client().Transport
	m.httpClient = &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/oauth/token") && failures > 0 {
			failures--
			return nil, errors.New("read tcp: connection reset by peer")
		}
		return base.RoundTrip(req)
	})}

	var sleeps []time.Duration
	m.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	token, err := m.PollForToken(context.Background(), &DeviceAuthorization{
		DeviceCode: "dev-123",
		ExpiresIn:  600,
		Interval:   5,
	})
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, "at-1", token.AccessToken)
	assert.Equal(t, 1, attempts, "only the second attempt reaches the server")
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeps, "one interval sleep after the failed attempt")
}

func TestPollForTokenDenied(t *testing.T) {
	as := newAuthServer(t)
	as.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "access_denied"})
	}

	m, _ := newTestManager(t, as)
	token, err := m.PollForToken(context.Background(), &DeviceAuthorization{
		DeviceCode: "dev-123",
		ExpiresIn:  600,
		Interval:   5,
	})
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestPollForTokenExpiredSessionNeverPolls(t *testing.T) {
	as := newAuthServer(t)
	as.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		t.Error("token endpoint should not be called for an expired session")
	}

	m, _ := newTestManager(t, as)
	token, err := m.PollForToken(context.Background(), &DeviceAuthorization{
		DeviceCode: "dev-123",
		ExpiresIn:  0,
		Interval:   5,
	})
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestCompleteAuthenticationPersistsCredentials(t *testing.T) {
	as := newAuthServer(t)
	as.userinfoHandler = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":  "Jane Doe",
			"email": "jane@example.com",
			"teams": []map[string]string{
				{"slug": "acme", "name": "ACME Inc"},
				{"slug": "other", "name": "Other"},
			},
		})
	}

	m, store := newTestManager(t, as)
	info, err := m.CompleteAuthentication(context.Background(), &oauth2.Token{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", info.Name)

	assert.Equal(t, "at-1", store.Get(config.KeyAccessToken))
	assert.Equal(t, "rt-1", store.Get(config.KeyRefreshToken))
	assert.Equal(t, "acme", store.Get(config.KeyTeamSlug))
	assert.Equal(t, "ACME Inc", store.Get(config.KeyTeamName))
}

func TestCompleteAuthenticationNoTeamsIsFormatError(t *testing.T) {
	as := newAuthServer(t)
	as.userinfoHandler = func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":  "Jane Doe",
			"email": "jane@example.com",
			"teams": []map[string]string{},
		})
	}

	m, store := newTestManager(t, as)
	_, err := m.CompleteAuthentication(context.Background(), &oauth2.Token{AccessToken: "at-1"})

	var fe *cli.ResponseFormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "teams", fe.Field)
	assert.False(t, store.Has(config.KeyAccessToken), "nothing should be persisted")
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	as := newAuthServer(t)
	as.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		t.Error("token endpoint should not be called without a refresh token")
	}

	m, _ := newTestManager(t, as)
	refreshed, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, refreshed)
}

func TestRefreshSuccessKeepsUnrotatedRefreshToken(t *testing.T) {
	as := newAuthServer(t)
	as.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "refresh_token", payload["grant_type"])
		assert.Equal(t, "rt-old", payload["refresh_token"])

		// No refresh_token in the answer: the server did not rotate it.
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-new"})
	}
	as.userinfoHandler = func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":  "Jane Doe",
			"email": "jane@example.com",
			"teams": []map[string]string{{"slug": "acme", "name": "ACME Inc"}},
		})
	}

	m, store := newTestManager(t, as)
	require.NoError(t, store.SetMany(map[string]string{
		config.KeyAccessToken:  "at-old",
		config.KeyRefreshToken: "rt-old",
	}))

	refreshed, err := m.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "at-new", store.Get(config.KeyAccessToken))
	assert.Equal(t, "rt-old", store.Get(config.KeyRefreshToken))
	assert.Equal(t, "acme", store.Get(config.KeyTeamSlug))
}

func TestRefreshRejectionSurfacesTokenEndpointError(t *testing.T) {
	as := newAuthServer(t)
	as.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}

	m, store := newTestManager(t, as)
	require.NoError(t, store.Set(config.KeyRefreshToken, "rt-revoked"))

	_, err := m.Refresh(context.Background())
	var te *TokenEndpointError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Equal(t, "invalid_grant", te.Code)
}

func TestRevokeTokensPrefersRefreshToken(t *testing.T) {
	as := newAuthServer(t)
	var revoked string
	as.revokeHandler = func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		revoked = payload["token"]
		w.WriteHeader(http.StatusOK)
	}

	m, store := newTestManager(t, as)
	require.NoError(t, store.SetMany(map[string]string{
		config.KeyAccessToken:  "at-1",
		config.KeyRefreshToken: "rt-1",
	}))

	m.RevokeTokens(context.Background())
	assert.Equal(t, "rt-1", revoked)
}

func TestRevokeTokensWithoutCredentialsIsSilent(t *testing.T) {
	as := newAuthServer(t)
	as.revokeHandler = func(w http.ResponseWriter, r *http.Request) {
		t.Error("revocation endpoint should not be called without stored tokens")
	}

	m, _ := newTestManager(t, as)
	m.RevokeTokens(context.Background())
	assert.Equal(t, 0, as.discoveryHits, "no discovery needed without tokens")
}
