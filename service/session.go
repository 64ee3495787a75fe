// Package service provides the authenticated HTTP session used to talk to
// the raster service.
//
// A Session owns the transport tuning and auth header injection. It does not
// retry; callers wrap whole request-plus-decode operations with the retry
// package so every attempt starts from a fresh stream.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/argilla-geo/strata/iox"
	"github.com/argilla-geo/strata/stream"
)

// Transport tuning. Connection establishment fails fast; the response
// header wait is long because the service renders the full scene before
// the first byte.
const (
	DefaultDialTimeout           = 9500 * time.Millisecond
	DefaultResponseHeaderTimeout = 300 * time.Second
)

// RequestIDHeader carries a unique id per HTTP request for server-side
// correlation.
const RequestIDHeader = "X-Request-Id"

// TokenProvider supplies the bearer token attached to every request.
type TokenProvider interface {
	Token() (string, error)
}

// StaticToken is a TokenProvider returning a fixed token.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

// EnvToken reads the token from an environment variable on each request.
type EnvToken string

func (t EnvToken) Token() (string, error) {
	v := os.Getenv(string(t))
	if v == "" {
		return "", fmt.Errorf("service: environment variable %s is empty", string(t))
	}
	return v, nil
}

// Options configures a Session.
type Options struct {
	// BaseURL is the service root, e.g. "https://platform.example.com/raster/v2".
	BaseURL string

	// Tokens supplies auth tokens. Optional; requests go out unauthenticated
	// when nil.
	Tokens TokenProvider

	// DialTimeout bounds TCP connection establishment.
	// Default: 9.5s
	DialTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers after the
	// request is written. The body itself is unbounded; streams can run for
	// a long time.
	// Default: 300s
	ResponseHeaderTimeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// HTTPClient overrides the built transport, for tests.
	HTTPClient *http.Client
}

// Session is an authenticated HTTP session against one service base URL.
type Session struct {
	baseURL   string
	tokens    TokenProvider
	userAgent string
	client    *http.Client
}

// New creates a Session from the given options.
func New(opts Options) *Session {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ResponseHeaderTimeout <= 0 {
		opts.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: opts.DialTimeout,
				}).DialContext,
				ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
			},
			// No overall timeout: response bodies stream for minutes.
		}
	}

	return &Session{
		baseURL:   opts.BaseURL,
		tokens:    opts.Tokens,
		userAgent: opts.UserAgent,
		client:    client,
	}
}

// BaseURL returns the service root this session talks to.
func (s *Session) BaseURL() string { return s.baseURL }

// PostStream issues a POST with a JSON body and returns the raw response
// body for streaming decode. extra headers (retry count in particular) are
// copied onto the request. The caller owns the returned body.
//
// Non-2xx responses are drained, closed, and converted to classified
// errors: 5xx maps to a server-reported error, 4xx to a client error.
func (s *Session) PostStream(ctx context.Context, path string, payload any, extra http.Header) (io.ReadCloser, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("service: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("service: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := s.decorate(req, extra); err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// PostJSON issues a POST and decodes the JSON response into out.
func (s *Session) PostJSON(ctx context.Context, path string, payload, out any) error {
	body, err := s.PostStream(ctx, path, payload, nil)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(body)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return &stream.Error{Kind: stream.KindMetadataCorrupt, Msg: "malformed response body", Err: err}
	}
	return nil
}

// GetJSON issues a GET and decodes the JSON response into out.
func (s *Session) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("service: create request: %w", err)
	}
	if err := s.decorate(req, nil); err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	defer iox.DiscardClose(resp.Body)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &stream.Error{Kind: stream.KindMetadataCorrupt, Msg: "malformed response body", Err: err}
	}
	return nil
}

// decorate attaches auth, correlation, and caller-supplied headers.
func (s *Session) decorate(req *http.Request, extra http.Header) error {
	if s.tokens != nil {
		tok, err := s.tokens.Token()
		if err != nil {
			return stream.NewClientError("auth token unavailable: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return nil
}

// checkStatus converts non-2xx responses into classified errors. The body
// is drained and closed on failure so the connection can be reused.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet := readSnippet(resp.Body, 512)
	iox.DrainClose(resp.Body)

	if resp.StatusCode >= 500 {
		return stream.NewServerError("HTTP %d: %s", resp.StatusCode, snippet)
	}
	return stream.NewClientError("HTTP %d: %s", resp.StatusCode, snippet)
}

func readSnippet(r io.Reader, n int64) string {
	b, _ := io.ReadAll(io.LimitReader(r, n))
	return string(bytes.TrimSpace(b))
}
