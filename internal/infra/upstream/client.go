package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"enrollment-gateway/internal/metrics"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
)

const refreshPath = "/auth/refresh"

// Client talks to the platform REST API on behalf of one Session.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	log     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: session,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = NewSession()
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

type requestFunc func(ctx context.Context) (*http.Request, error)

func (c *Client) newRequest(method, path string, body func() (io.Reader, string, error)) requestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		var (
			r           io.Reader
			contentType string
		)
		if body != nil {
			var err error
			if r, contentType, err = body(); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
		if err != nil {
			return nil, errors.Wrapf(err, "build %s %s", method, path)
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		return req, nil
	}
}

func jsonBody(v any) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", errors.Wrap(err, "encode request")
		}
		return bytes.NewReader(b), "application/json", nil
	}
}

// do sends the request with the session's token. A 401 triggers exactly one
// refresh followed by one retry. If that does not help, the session is
// logged out and ErrLoginRequired is returned.
func (c *Client) do(ctx context.Context, build requestFunc, out any) error {
	var (
		refreshed  bool
		refreshErr error
	)

	err := retry.Do(
		func() error {
			if refreshErr != nil {
				return retry.Unrecoverable(refreshErr)
			}
			return c.send(ctx, build, true, out)
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !refreshed && errors.Is(err, ErrUnauthorized) && c.session.CanRefresh()
		}),
		retry.OnRetry(func(n uint, err error) {
			if refreshed {
				return
			}
			refreshed = true
			refreshErr = c.refresh(ctx)
		}),
	)

	if refreshErr != nil || errors.Is(err, ErrUnauthorized) {
		c.session.Logout()
		if refreshErr != nil {
			c.log.Warn("token refresh failed", slog.Any("error", refreshErr))
		}
		return errors.Wrap(ErrLoginRequired, "platform session expired")
	}
	return err
}

func (c *Client) send(ctx context.Context, build requestFunc, auth bool, out any) error {
	req, err := build(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		if tok, ok := c.session.Token(); ok {
			tok.SetAuthHeader(req)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamResponses.WithLabelValues("error").Inc()
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()
	metrics.UpstreamResponses.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	c.log.Debug("upstream response",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(body, out), "decode %s", req.URL.Path)
}

// Refresh renews the session's access token up front. On failure the session
// is logged out and ErrLoginRequired is returned.
func (c *Client) Refresh(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		c.session.Logout()
		c.log.Warn("token refresh failed", slog.Any("error", err))
		return errors.Wrap(ErrLoginRequired, "platform session expired")
	}
	return nil
}

func (c *Client) refresh(ctx context.Context) error {
	tok, ok := c.session.Token()
	if !ok || tok.RefreshToken == "" {
		metrics.TokenRefreshes.WithLabelValues("skipped").Inc()
		return ErrLoginRequired
	}

	var out struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	build := c.newRequest(http.MethodPost, refreshPath, jsonBody(map[string]string{"refresh_token": tok.RefreshToken}))
	if err := c.send(ctx, build, false, &out); err != nil {
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		return errors.Wrap(err, "refresh token")
	}
	if out.AccessToken == "" {
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		return errors.New("refresh token: empty access token")
	}
	if out.RefreshToken == "" {
		out.RefreshToken = tok.RefreshToken
	}

	c.session.LoginTokens(out.AccessToken, out.RefreshToken)
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	return nil
}

// unwrapKey returns obj[key] when body is an object carrying key, else body.
// The API wraps some resources ({"course": {...}}) and not others.
func unwrapKey(body json.RawMessage, key string) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return body
	}
	if inner, ok := obj[key]; ok {
		return inner
	}
	return body
}
