// Package auth owns the OAuth2 device-authorization lifecycle for the Chief
// Tools account service: endpoint discovery, device-flow initiation and
// polling, token refresh, best-effort revocation, and team-context tracking.
//
// It also provides Transport, an http.RoundTripper that attaches bearer
// credentials to outgoing requests and transparently recovers from token
// expiry with an at-most-one refresh-and-retry policy. Fatal authentication
// failures are reported as typed errors from chief/internal/cli; the process
// is only ever terminated by the outermost command layer.
package auth
