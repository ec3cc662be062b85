package dataverse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// TokenSource supplies a bearer token for CRM calls.
//
// Token returns the empty string when acquisition fails. Failures are logged,
// never returned: callers must treat an empty token as a hard stop for the
// whole operation rather than proceeding unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// StaticToken returns a TokenSource that always yields tok. Intended for tests.
func StaticToken(tok string) TokenSource {
	return staticToken(tok)
}

type staticToken string

func (s staticToken) Token(context.Context) string { return string(s) }

// ClientCredentials acquires tokens via the OAuth2 client-credentials grant.
// Every call hits the token endpoint; there is no cache, so each CRM
// operation pays a full authentication round trip.
type ClientCredentials struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	http         *http.Client
}

// CredentialsOption configures a ClientCredentials source.
type CredentialsOption func(*ClientCredentials)

// WithTokenHTTPClient sets a custom HTTP client for token requests.
func WithTokenHTTPClient(hc *http.Client) CredentialsOption {
	return func(c *ClientCredentials) {
		c.http = hc
	}
}

// NewClientCredentials builds a token source for the given identity endpoint.
func NewClientCredentials(tokenURL, clientID, clientSecret, scope string, opts ...CredentialsOption) *ClientCredentials {
	c := &ClientCredentials{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ClientCredentials) Token(ctx context.Context) string {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {c.scope},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		zap.L().Error("token request build failed", zap.Error(err))
		return ""
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().Error("token request failed", zap.Error(err))
		return ""
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.L().Error("token response read failed", zap.Error(err))
		return ""
	}

	if resp.StatusCode != http.StatusOK {
		zap.L().Error("token retrieval failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return ""
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		zap.L().Error("token response parse failed", zap.Error(err))
		return ""
	}
	return tok.AccessToken
}
