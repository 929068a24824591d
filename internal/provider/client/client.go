package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"console/internal/provider"
)

const (
	LoginPath   = "/login"
	refreshPath = "/auth/refresh"
)

// TokenStore is the part of the session store the client needs.
type TokenStore interface {
	Token(ctx context.Context) string
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Navigator moves the user to another page. A nil Navigator means the call
// has no page behind it (background work) and no navigation happens.
type Navigator interface {
	Location() string
	Navigate(path string)
}

// Request describes one backend call. It is never modified once built.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

type attempt int

const (
	attemptInitial attempt = iota
	attemptRetried
)

func (a attempt) String() string {
	if a == attemptRetried {
		return "retried"
	}
	return "initial"
}

type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
	nav     Navigator
	metrics *Metrics
	log     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(baseURL string, timeout time.Duration, log *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   20,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 30 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
				ForceAttemptHTTP2:     true,
				MaxConnsPerHost:       50,
			},
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithSession returns a client bound to one visitor's store and page.
// The transport is shared with the parent.
func (c *Client) WithSession(store TokenStore, nav Navigator) *Client {
	cp := *c
	cp.store = store
	cp.nav = nav
	return &cp
}

type result struct {
	status  int
	body    []byte
	attempt attempt
}

// Send performs req and decodes a successful body into out (which may be nil).
//
// A 401 on the first attempt triggers one POST /auth/refresh. On success the new
// token is stored and the request is sent once more; whatever that returns is final.
// On refresh failure the session is cleared, the user is sent to the login page
// (unless already there) and the refresh failure is returned.
func (c *Client) Send(ctx context.Context, req Request, out any) error {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}

	res, err := c.dispatch(ctx, req, payload, c.token(ctx), attemptInitial)
	if err != nil {
		return err
	}

	if res.status == http.StatusUnauthorized && res.attempt == attemptInitial {
		res, err = c.recoverUnauthorized(ctx, req, payload)
		if err != nil {
			return err
		}
	}

	return res.decode(out)
}

func (c *Client) recoverUnauthorized(ctx context.Context, req Request, payload []byte) (*result, error) {
	newToken, err := c.refresh(ctx)
	if err != nil {
		c.metrics.refreshed(false)
		c.log.Warn("token refresh failed, clearing session",
			slog.String("path", req.Path),
			slog.String("error", err.Error()))
		c.dropSession(ctx)
		return nil, &provider.RefreshError{Err: err}
	}
	c.metrics.refreshed(true)

	if c.store != nil {
		if err := c.store.SetToken(ctx, newToken); err != nil {
			c.log.Error("failed to persist refreshed token", slog.String("error", err.Error()))
		}
	}

	c.log.Debug("token refreshed, retrying request",
		slog.String("method", req.Method),
		slog.String("path", req.Path))

	return c.dispatch(ctx, req, payload, newToken, attemptRetried)
}

// refresh never goes through the 401 recovery path, so a failing refresh cannot recurse.
func (c *Client) refresh(ctx context.Context) (string, error) {
	res, err := c.dispatch(ctx, Request{Method: http.MethodPost, Path: refreshPath}, nil, c.token(ctx), attemptInitial)
	if err != nil {
		return "", err
	}

	var out refreshResponse
	if err := res.decode(&out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("refresh returned no access token")
	}
	return out.AccessToken, nil
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *Client) dropSession(ctx context.Context) {
	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			c.log.Error("failed to clear session", slog.String("error", err.Error()))
		}
	}
	if c.nav == nil {
		return
	}
	if c.nav.Location() != LoginPath {
		c.nav.Navigate(LoginPath)
	}
}

func (c *Client) token(ctx context.Context) string {
	if c.store == nil {
		return ""
	}
	return c.store.Token(ctx)
}

func (c *Client) dispatch(ctx context.Context, req Request, payload []byte, token string, at attempt) (*result, error) {
	url := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")

	c.log.Debug("calling backend",
		slog.String("method", req.Method),
		slog.String("url", url),
		slog.String("attempt", at.String()))

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observe(req.Method, 0)
		c.log.Warn("backend request failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return nil, &provider.APIError{Kind: provider.KindNetwork, Err: err, Retried: at == attemptRetried}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.observe(req.Method, 0)
		return nil, &provider.APIError{Kind: provider.KindNetwork, Err: fmt.Errorf("read response: %w", err), Retried: at == attemptRetried}
	}
	c.metrics.observe(req.Method, resp.StatusCode)

	if resp.StatusCode >= 400 {
		c.log.Warn("backend returned error status",
			slog.String("method", req.Method),
			slog.String("path", req.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("attempt", at.String()))
	} else {
		c.log.Debug("backend response",
			slog.Int("status", resp.StatusCode),
			slog.Int("body_length", len(respBody)))
	}

	return &result{status: resp.StatusCode, body: respBody, attempt: at}, nil
}

type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

// fieldErrors accepts both {"field": ["msg"]} and {"field": "msg"}.
func fieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	var many map[string][]string
	if json.Unmarshal(raw, &many) == nil {
		return many
	}
	var one map[string]string
	if json.Unmarshal(raw, &one) == nil {
		out := make(map[string][]string, len(one))
		for k, v := range one {
			out[k] = []string{v}
		}
		return out
	}
	return nil
}

func (r *result) decode(out any) error {
	if r.status < 200 || r.status >= 300 {
		apiErr := &provider.APIError{
			Status:  r.status,
			Kind:    provider.KindForStatus(r.status),
			Retried: r.attempt == attemptRetried,
		}
		var eb errorBody
		if len(r.body) > 0 && json.Unmarshal(r.body, &eb) == nil {
			apiErr.Message = eb.Message
			if apiErr.Message == "" {
				apiErr.Message = eb.Error
			}
			apiErr.Errors = fieldErrors(eb.Errors)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(r.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}
