package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/metrics"
)

// maxAuthRetries bounds refresh-and-replay cycles per call.
const maxAuthRetries = 1

// Session supplies credentials to a Client.
type Session interface {
	AccessToken() string
	RefreshToken() string
	// Refresh exchanges the refresh token for a new access token and
	// reports whether it succeeded.
	Refresh(ctx context.Context) bool
}

// Client performs API calls on behalf of the signed-in user. A 401 on an
// authenticated call triggers at most one session refresh and one replay.
type Client struct {
	logger  *zap.Logger
	fetcher *Fetcher
	session Session
}

// NewClient wraps fetcher with session credentials. session may be nil for anonymous use.
func NewClient(logger *zap.Logger, fetcher *Fetcher, session Session) *Client {
	return &Client{logger: logger, fetcher: fetcher, session: session}
}

// Fetcher returns the underlying session-less fetcher.
func (c *Client) Fetcher() *Fetcher { return c.fetcher }

// Request calls endpoint and decodes a successful JSON response into out.
func (c *Client) Request(ctx context.Context, endpoint string, opts Options, out any) (Result, error) {
	token := c.accessToken(opts)

	for retries := 0; ; retries++ {
		res, err := c.fetcher.Do(ctx, endpoint, opts, token, out)

		if !c.authExpired(opts, err) {
			return res, err
		}
		if retries >= maxAuthRetries {
			c.logger.Warn("api.auth_still_rejected", zap.String("endpoint", endpoint))
			return res, err
		}
		if c.session.RefreshToken() == "" {
			metrics.AuthRefreshTotal.WithLabelValues("skipped").Inc()
			return res, err
		}
		if !c.session.Refresh(ctx) {
			metrics.AuthRefreshTotal.WithLabelValues("failed").Inc()
			return res, err
		}
		token = c.session.AccessToken()
		if token == "" {
			metrics.AuthRefreshTotal.WithLabelValues("failed").Inc()
			return res, err
		}
		metrics.AuthRefreshTotal.WithLabelValues("ok").Inc()
		c.logger.Debug("api.replay_after_refresh", zap.String("endpoint", endpoint))
	}
}

func (c *Client) accessToken(opts Options) string {
	if opts.SkipAuth || c.session == nil {
		return ""
	}
	return c.session.AccessToken()
}

// authExpired reports whether err is a 401 on a call eligible for refresh.
func (c *Client) authExpired(opts Options, err error) bool {
	if opts.SkipAuth || c.session == nil {
		return false
	}
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusUnauthorized
}

func (c *Client) Get(ctx context.Context, endpoint string, out any) (Result, error) {
	return c.Request(ctx, endpoint, Options{Method: http.MethodGet}, out)
}

func (c *Client) Post(ctx context.Context, endpoint string, body, out any) (Result, error) {
	return c.Request(ctx, endpoint, Options{Method: http.MethodPost, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, endpoint string, body, out any) (Result, error) {
	return c.Request(ctx, endpoint, Options{Method: http.MethodPut, Body: body}, out)
}

func (c *Client) Patch(ctx context.Context, endpoint string, body, out any) (Result, error) {
	return c.Request(ctx, endpoint, Options{Method: http.MethodPatch, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, endpoint string, out any) (Result, error) {
	return c.Request(ctx, endpoint, Options{Method: http.MethodDelete}, out)
}
