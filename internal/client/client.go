// Package client is a typed client for the reservation API. It keeps a rule
// rejection (*RejectionError) apart from a server that cannot be reached
// (ErrUpstreamUnreachable) and never substitutes fabricated data.
package client

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
	"time"
)

const defaultTimeout = 10 * time.Second

// Client talks to one reservation API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session Session
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d, Transport: c.http.Transport}
		}
	}
}

// New returns a Client for baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	const op = "client.New"

	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: base url %q must be http or https", op, baseURL)
	}

	c := &Client{baseURL: u, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithSession returns a copy of c that authenticates as session.
func (c *Client) WithSession(session Session) *Client {
	clone := *c
	clone.session = session
	return &clone
}

// Session returns the session the client acts as.
func (c *Client) Session() Session {
	return c.session
}

// endpoint joins the base URL with an already escaped path.
func (c *Client) endpoint(escapedPath string, query url.Values) string {
	u := *c.baseURL
	raw := strings.TrimRight(u.EscapedPath(), "/") + escapedPath
	if decoded, err := url.PathUnescape(raw); err == nil {
		u.Path, u.RawPath = decoded, raw
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends the request and decodes a 2xx JSON body into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &UnreachableError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &UnreachableError{URL: req.URL.String(), Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
		return nil
	}
	return statusError(req.URL.String(), resp.StatusCode, raw)
}

func statusError(rawURL string, status int, raw []byte) error {
	var body apiError
	_ = json.Unmarshal(raw, &body)
	message := strings.TrimSpace(body.Message)
	if message == "" {
		message = http.StatusText(status)
	}

	switch status {
	case http.StatusBadRequest:
		return &RejectionError{Code: body.ErrorCode, Message: message, Fields: body.Errors, Conflicts: body.Conflicts}
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &UnreachableError{URL: rawURL, Status: status, Err: errors.New(message)}
	default:
		return &StatusError{Status: status, Message: message}
	}
}

type apiError struct {
	ErrorCode string            `json:"error_code"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors"`
	Conflicts []Conflict        `json:"conflicts"`
}

// IsUnreachable reports whether err means the server could not be reached.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUpstreamUnreachable)
}
