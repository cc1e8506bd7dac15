// Package domainapi is a typed client for the Domain Chief registration API.
// All requests route through the bearer auth transport, which handles header
// injection and the single refresh-and-retry recovery on 401. Input
// validation happens client-side before any network call.
package domainapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"chief/internal/auth"
	"chief/internal/cli"
)

// DefaultBaseURL is the production Domain Chief API.
const DefaultBaseURL = "https://domain.chief.app/api/v1"

// APIError is a non-success HTTP status from the API (other than the 401s
// the auth transport recovers from).
type APIError struct {
	StatusCode int
	Message    string
}

// Error formats the API failure.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API request failed with status %d", e.StatusCode)
}

// Client calls the Domain Chief API on behalf of the authenticated team.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client (used by tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client whose requests carry the manager's credentials.
func NewClient(manager *auth.Manager, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: manager.AuthenticatedClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues a request and decodes the response envelope. A missing data
// field is a format error, distinct from connection-level failures.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.classifyError(err, endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &cli.ResponseFormatError{Endpoint: path, Field: "data"}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &cli.ResponseFormatError{Endpoint: path, Field: "data"}
	}

	return &env, nil
}

// classifyError surfaces the transport's typed auth errors untouched and
// wraps everything else as a connection error with user guidance.
func (c *Client) classifyError(err error, endpoint string) error {
	inner := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		inner = urlErr.Err
	}

	switch {
	case errors.Is(inner, &cli.AuthRequiredError{}),
		errors.Is(inner, &cli.AuthExpiredError{}),
		errors.Is(inner, &cli.AuthFailedError{}):
		return inner
	}

	return cli.ClassifyConnectionError(err, endpoint)
}

// apiError builds an APIError from a non-success response, pulling the
// message out of the body when the server provides one.
func apiError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// ListDomains returns a page of the team's domains.
func (c *Client) ListDomains(ctx context.Context, opts ListOptions) (*DomainList, error) {
	query, err := listQuery(opts)
	if err != nil {
		return nil, err
	}

	env, err := c.do(ctx, http.MethodGet, "domains", query, nil)
	if err != nil {
		return nil, err
	}

	var domains []Domain
	if err := json.Unmarshal(env.Data, &domains); err != nil {
		return nil, &cli.ResponseFormatError{Endpoint: "domains", Field: "data"}
	}
	return &DomainList{Domains: domains, Meta: env.Meta}, nil
}

// ListContacts returns a page of the team's WHOIS contacts. The query filter
// and expand parameters do not apply to contacts.
func (c *Client) ListContacts(ctx context.Context, opts ListOptions) (*ContactList, error) {
	query, err := listQuery(ListOptions{Page: opts.Page, PerPage: opts.PerPage})
	if err != nil {
		return nil, err
	}

	env, err := c.do(ctx, http.MethodGet, "contacts", query, nil)
	if err != nil {
		return nil, err
	}

	var contacts []Contact
	if err := json.Unmarshal(env.Data, &contacts); err != nil {
		return nil, &cli.ResponseFormatError{Endpoint: "contacts", Field: "data"}
	}
	return &ContactList{Contacts: contacts, Meta: env.Meta}, nil
}

// CheckAvailability returns the registration status ("free" or a
// registered/unavailable status) for a domain name.
func (c *Client) CheckAvailability(ctx context.Context, domain string) (string, error) {
	if domain == "" {
		return "", cli.Validationf("domain name is required")
	}

	path := "domains/availability/" + url.PathEscape(domain)
	env, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return "", err
	}

	var result struct {
		Availability string `json:"availability"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil || result.Availability == "" {
		return "", &cli.ResponseFormatError{Endpoint: "availability", Field: "availability"}
	}
	return result.Availability, nil
}

// GetTLD returns the metadata document for a top-level domain. The shape
// varies per TLD, so the document is returned as-is.
func (c *Client) GetTLD(ctx context.Context, tld string) (map[string]any, error) {
	if tld == "" {
		return nil, cli.Validationf("tld is required")
	}

	env, err := c.do(ctx, http.MethodGet, "tlds/"+url.PathEscape(tld), nil, nil)
	if err != nil {
		return nil, err
	}

	var info map[string]any
	if err := json.Unmarshal(env.Data, &info); err != nil {
		return nil, &cli.ResponseFormatError{Endpoint: "tlds", Field: "data"}
	}
	return info, nil
}

// RegisterOrTransfer submits a domain registration (or, with an auth code, a
// transfer). Parameters are validated before anything is sent.
func (c *Client) RegisterOrTransfer(ctx context.Context, params RegistrationParams) (*Domain, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	env, err := c.do(ctx, http.MethodPost, "domains", nil, params)
	if err != nil {
		return nil, err
	}

	var domain Domain
	if err := json.Unmarshal(env.Data, &domain); err != nil {
		return nil, &cli.ResponseFormatError{Endpoint: "domains", Field: "data"}
	}
	return &domain, nil
}
