package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"chief/internal/cli"
)

// TeamHeader carries the active team slug on authenticated requests.
const TeamHeader = "X-Chief-Team"

// retryMarker is the context key marking a request that has already been
// resent after a refresh. Carrying the marker on the request context keeps
// retry state per-request; sequential requests never contaminate each other.
type retryMarker struct{}

// Transport is an http.RoundTripper that attaches bearer credentials to
// every request and recovers from a 401 with at most one token refresh
// followed by one resend. Requests made through a client using this
// transport are, by construction, "tagged" as requiring authentication.
type Transport struct {
	// Manager supplies credentials and the refresh operation.
	Manager *Manager

	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// setAuthHeaders injects the current credentials into req. Called once per
// send so a retry after refresh picks up the new token and team.
func (t *Transport) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+t.Manager.BearerToken())
	if slug := t.Manager.TeamSlug(); slug != "" {
		req.Header.Set(TeamHeader, slug)
	} else {
		req.Header.Del(TeamHeader)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.Manager.UserAgent())
	}
}

// RoundTrip implements http.RoundTripper.
//
// Pre-flight: an unauthenticated session fails with AuthRequiredError before
// any network I/O. Post-response: a 401 triggers exactly one refresh and one
// resend; a 401 on the resend passes through unchanged.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.Manager.IsAuthenticated() {
		return nil, &cli.AuthRequiredError{}
	}

	// RoundTrippers must not mutate the caller's request.
	out := req.Clone(req.Context())
	t.setAuthHeaders(out)

	resp, err := t.base().RoundTrip(out)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	if req.Context().Value(retryMarker{}) != nil {
		// Already retried once; surface the 401 as-is.
		return resp, nil
	}

	slog.Debug("received 401, attempting token refresh")

	refreshed, err := t.Manager.Refresh(req.Context())
	if err != nil {
		drainAndClose(resp)

		var te *TokenEndpointError
		if errors.As(err, &te) && te.StatusCode >= 400 && te.StatusCode < 500 {
			// The refresh token itself was rejected.
			_ = t.Manager.ClearAuthData()
			return nil, &cli.AuthExpiredError{}
		}
		return nil, &cli.AuthFailedError{Reason: err}
	}
	if !refreshed {
		drainAndClose(resp)
		_ = t.Manager.ClearAuthData()
		return nil, &cli.AuthRequiredError{}
	}

	drainAndClose(resp)

	retry := req.Clone(context.WithValue(req.Context(), retryMarker{}, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}

	// Re-enter RoundTrip so the resend picks up the refreshed credentials
	// and the marker stops a second recovery attempt.
	return t.RoundTrip(retry)
}

// drainAndClose releases a response we are not returning so the underlying
// connection can be reused.
func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// unwrapURLError strips the *url.Error wrapper http.Client adds around
// transport errors, so typed auth errors surface directly to callers.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
