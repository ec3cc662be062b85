// Package dataverse provides a bearer-authenticated OData Web API client for
// the CRM, covering entity-set reads and writes, unbound actions, and chunked
// file uploads.
package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const apiPath = "/api/data/v9.2"

// preferFormatted asks the CRM to annotate lookup columns with their display
// values.
const preferFormatted = `odata.include-annotations="OData.Community.Display.V1.FormattedValue"`

// ErrNoToken signals that the token source yielded no bearer token. The
// operation that hit it must abort without further CRM calls.
var ErrNoToken = errors.New("dataverse: no access token")

// Client defines the CRM Web API operations used by the sync engine.
type Client interface {
	// List reads an entity set and returns the matching records.
	List(ctx context.Context, entitySet string, q Query) ([]map[string]any, error)
	// GetRecord reads a single record by id.
	GetRecord(ctx context.Context, entitySet, id string, q Query) (map[string]any, error)
	// Create posts a new record and returns the id parsed from the Location
	// header. The id may be empty if the CRM omitted the header.
	Create(ctx context.Context, entitySet string, body any) (string, error)
	// Update patches an existing record.
	Update(ctx context.Context, entitySet, id string, body any) error
	// Execute posts a Web API action. out, when non-nil, receives the decoded
	// response body.
	Execute(ctx context.Context, action string, body any, out any) error
	// Download reads the binary content of a file column.
	Download(ctx context.Context, entitySet, id, attribute string) ([]byte, error)
	// UploadFile transfers a binary payload into a file column using the
	// three-phase block-upload protocol.
	UploadFile(ctx context.Context, entityName, recordID, attribute string, data []byte, fileName string) error
}

// Option configures the API client.
type Option func(*apiClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *apiClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for CRM calls. A burst equal to
// the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *apiClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type apiClient struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a CRM client rooted at baseURL (the organization URL,
// without the /api/data suffix).
func NewClient(baseURL string, tokens TokenSource, opts ...Option) Client {
	c := &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *apiClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// newRequest builds an authenticated OData request. Returns ErrNoToken when
// the token source comes back empty.
func (c *apiClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	tok := c.tokens.Token(ctx)
	if tok == "" {
		return nil, ErrNoToken
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "dataverse: marshal body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPath+path, reader)
	if err != nil {
		return nil, eris.Wrap(err, "dataverse: create request")
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("OData-Version", "4.0")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends the request and returns the response body and headers. A non-2xx
// status is returned as an error carrying the response body.
func (c *apiClient) do(req *http.Request) ([]byte, http.Header, error) {
	if err := c.wait(req.Context()); err != nil {
		return nil, nil, eris.Wrap(err, "dataverse: rate limit")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataverse: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataverse: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, resp.Header, eris.Errorf("dataverse: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, string(body))
	}
	return body, resp.Header, nil
}

func (c *apiClient) List(ctx context.Context, entitySet string, q Query) ([]map[string]any, error) {
	path := "/" + entitySet
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if q.Formatted {
		req.Header.Set("Prefer", preferFormatted)
	}

	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var page struct {
		Value []map[string]any `json:"value"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("dataverse: decode %s list", entitySet))
	}
	return page.Value, nil
}

func (c *apiClient) GetRecord(ctx context.Context, entitySet, id string, q Query) (map[string]any, error) {
	path := fmt.Sprintf("/%s(%s)", entitySet, id)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if q.Formatted {
		req.Header.Set("Prefer", preferFormatted)
	}

	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("dataverse: decode %s(%s)", entitySet, id))
	}
	return record, nil
}

func (c *apiClient) Create(ctx context.Context, entitySet string, body any) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/"+entitySet, body)
	if err != nil {
		return "", err
	}

	_, headers, err := c.do(req)
	if err != nil {
		return "", err
	}
	return idFromLocation(headers.Get("Location")), nil
}

func (c *apiClient) Update(ctx context.Context, entitySet, id string, body any) error {
	req, err := c.newRequest(ctx, http.MethodPatch, fmt.Sprintf("/%s(%s)", entitySet, id), body)
	if err != nil {
		return err
	}
	_, _, err = c.do(req)
	return err
}

func (c *apiClient) Execute(ctx context.Context, action string, body any, out any) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/"+action, body)
	if err != nil {
		return err
	}

	respBody, _, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, fmt.Sprintf("dataverse: decode %s response", action))
		}
	}
	return nil
}

func (c *apiClient) Download(ctx context.Context, entitySet, id, attribute string) ([]byte, error) {
	path := fmt.Sprintf("/%s(%s)/%s/$value", entitySet, id, attribute)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// idFromLocation extracts the record id from an OData entity URI such as
// https://org.crm.dynamics.com/api/data/v9.2/accounts(1d2c...). Returns ""
// when the header is absent or has no parenthesized id.
func idFromLocation(location string) string {
	open := strings.LastIndex(location, "(")
	end := strings.LastIndex(location, ")")
	if open < 0 || end < open {
		return ""
	}
	return location[open+1 : end]
}
