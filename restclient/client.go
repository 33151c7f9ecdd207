// Package restclient talks to the admin REST API: cursor paginated listings
// plus create, update, delete and reorder calls on any resource.
//
// Every failure is returned as *errors.Error from go-errors. HTTP failures
// carry the response status in Code, a category derived from it and the
// message of the {"message": ...} body when the server sent one. Requests
// are never retried.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-listsync/mutation"
	"github.com/goliatone/go-listsync/pagination"
	"github.com/goliatone/go-listsync/query"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// RequestIDHeader carries a per request id for server side tracing.
	RequestIDHeader = "X-Request-ID"

	reorderSegment = "reorder"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token returns the token itself.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Config holds the client settings.
type Config struct {
	// BaseURL is the API root, for example https://admin.example.com/api.
	BaseURL string

	// Timeout bounds a single request.
	// Default: 30 seconds
	Timeout time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string

	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client is the REST transport. It implements mutation.Backend.
type Client struct {
	baseURL   *url.URL
	client    *http.Client
	tokens    TokenSource
	userAgent string
}

var _ mutation.Backend = (*Client)(nil)

// New creates a client for cfg.BaseURL authenticating with tokens.
func New(cfg Config, tokens TokenSource) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, goerrors.New(fmt.Sprintf("invalid base url %q", cfg.BaseURL), goerrors.CategoryValidation).
			WithTextCode("INVALID_BASE_URL")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	if tokens == nil {
		tokens = StaticToken("")
	}

	return &Client{
		baseURL:   base,
		client:    client,
		tokens:    tokens,
		userAgent: cfg.UserAgent,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// List fetches the page addressed by key:
//
//	GET /{resource}?limit=&sortBy=&searchTerm=&cursor=
func List[T any](ctx context.Context, c *Client, key query.Key) (pagination.Page[T], error) {
	var page pagination.Page[T]
	endpoint := c.endpoint(key.Resource())
	if values := key.Values(); len(values) > 0 {
		endpoint += "?" + values.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return page, err
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return page, goerrors.Wrap(err, goerrors.CategoryExternal, "malformed listing response").
			WithTextCode("MALFORMED_RESPONSE")
	}
	return page, nil
}

// Fetcher binds List to c for use with pagination and infinite lists.
func Fetcher[T any](c *Client) pagination.Fetcher[T] {
	return func(ctx context.Context, key query.Key) (pagination.Page[T], error) {
		return List[T](ctx, c, key)
	}
}

// Do sends a mutation request:
//
//	create  POST   /{resource}
//	update  PUT    /{resource}/{id}
//	delete  DELETE /{resource}/{id}
//	reorder PUT    /{resource}/reorder
func (c *Client) Do(ctx context.Context, req mutation.Request) (mutation.Response, error) {
	var (
		method   string
		endpoint string
		payload  any
	)
	switch req.Operation {
	case mutation.OpCreate:
		method, endpoint, payload = http.MethodPost, c.endpoint(req.Resource), req.Payload
	case mutation.OpUpdate:
		method, endpoint, payload = http.MethodPut, c.endpoint(req.Resource, req.ID), req.Payload
	case mutation.OpDelete:
		method, endpoint = http.MethodDelete, c.endpoint(req.Resource, req.ID)
	case mutation.OpReorder:
		method, endpoint, payload = http.MethodPut, c.endpoint(req.Resource, reorderSegment), req.Payload
	default:
		return mutation.Response{}, goerrors.New(fmt.Sprintf("unsupported operation %q", req.Operation), goerrors.CategoryBadInput).
			WithTextCode("UNSUPPORTED_OPERATION")
	}

	body, err := c.do(ctx, method, endpoint, payload)
	if err != nil {
		return mutation.Response{}, err
	}

	var resp mutation.Response
	if len(bytes.TrimSpace(body)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return resp, goerrors.Wrap(err, goerrors.CategoryExternal, "malformed mutation response").
			WithTextCode("MALFORMED_RESPONSE")
	}
	return resp, nil
}

func (c *Client) endpoint(segments ...string) string {
	return c.baseURL.JoinPath(segments...).String()
}

// do performs an authenticated request and returns the body of a 2xx reply.
func (c *Client) do(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "failed to obtain access token").
			WithCode(http.StatusUnauthorized)
	}
	if token == "" {
		return nil, goerrors.New("missing access token", goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode("TOKEN_MISSING")
	}

	var bodyReader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to encode request body")
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, mutation.DefaultErrorMessage).
			WithTextCode("TRANSPORT_FAILED").
			WithMetadata(map[string]any{"method": method, "path": req.URL.Path}).
			WithRequestID(requestID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, mutation.DefaultErrorMessage).
			WithTextCode("RESPONSE_UNREADABLE").
			WithMetadata(map[string]any{"method": method, "path": req.URL.Path}).
			WithRequestID(requestID)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, body).WithRequestID(requestID)
	}
	return body, nil
}
