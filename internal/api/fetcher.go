package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/metrics"
	"github.com/wedding-os/client/internal/rate"
	"github.com/wedding-os/client/pkg/utils"
)

// DefaultTimeout bounds a call when neither the caller nor the client sets one.
const DefaultTimeout = 10 * time.Minute

const jsonContentType = "application/json"

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	BaseURL string
	// Timeout is the per-call default; zero means DefaultTimeout.
	Timeout time.Duration
	// RetryMax is the number of extra attempts for idempotent methods after
	// a network error or 5xx. Non-idempotent methods are never retried.
	RetryMax    int
	HTTPClient  *http.Client
	RateLimiter *rate.Manager
}

// Fetcher performs single API calls: header and body shaping, timeout,
// error shaping and JSON decoding. It knows nothing about sessions; the
// token, if any, is passed per call.
type Fetcher struct {
	logger   *zap.Logger
	baseURL  string
	timeout  time.Duration
	retryMax int
	rateMgr  *rate.Manager
	http     *http.Client
	withJar  *http.Client
}

// NewFetcher creates a Fetcher. A cookie jar is attached for calls made with CredentialsInclude.
func NewFetcher(logger *zap.Logger, cfg FetcherConfig) *Fetcher {
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	plain := *base
	plain.Jar = nil

	withJar := *base
	if withJar.Jar == nil {
		jar, _ := cookiejar.New(nil)
		withJar.Jar = jar
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Fetcher{
		logger:   logger,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timeout:  timeout,
		retryMax: cfg.RetryMax,
		rateMgr:  cfg.RateLimiter,
		http:     &plain,
		withJar:  &withJar,
	}
}

// BaseURL returns the URL endpoints are appended to.
func (f *Fetcher) BaseURL() string { return f.baseURL }

// Do calls endpoint and decodes a 2xx JSON body into out (when out is non-nil).
// A timeout or cancelled ctx yields Result{Cancelled: true} and a nil error.
func (f *Fetcher) Do(ctx context.Context, endpoint string, opts Options, token string, out any) (Result, error) {
	method := opts.method()
	route := RouteLabel(endpoint)
	url := f.baseURL + endpoint

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	if err := f.rateMgr.Wait(ctx, route); err != nil {
		if ctx.Err() != nil {
			return f.cancelled(route, method, url, start), nil
		}
		return Result{}, fmt.Errorf("rate limit wait: %w", err)
	}

	attempts := 1
	if isIdempotent(method) && f.retryMax > 0 {
		attempts += f.retryMax
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, Backoff(attempt-1)) {
				return f.cancelled(route, method, url, start), nil
			}
		}

		req, err := f.newRequest(ctx, method, url, opts, token)
		if err != nil {
			return Result{}, err
		}

		resp, err := f.clientFor(opts.Credentials).Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return f.cancelled(route, method, url, start), nil
			}
			lastErr = &NetworkError{URL: url, Err: err}
			f.logger.Warn("api.http_failed",
				zap.String("url", url),
				zap.String("method", method),
				zap.Error(err),
				zap.Int("attempt", attempt))
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			if ctx.Err() != nil {
				return f.cancelled(route, method, url, start), nil
			}
			lastErr = &NetworkError{URL: url, Err: readErr}
			continue
		}

		if resp.StatusCode >= 500 && attempt < attempts-1 {
			f.logger.Warn("api.server_error",
				zap.Int("status", resp.StatusCode),
				zap.String("url", url),
				zap.Int("attempt", attempt))
			lastErr = newHTTPError(resp.StatusCode, nil)
			continue
		}

		res := Result{Status: resp.StatusCode, Header: resp.Header}
		err = decodeResponse(resp.StatusCode, resp.Header, body, out)
		metrics.ObserveRequest(route, method, strconv.Itoa(resp.StatusCode), start)

		if err != nil {
			f.logger.Debug("api.http_error",
				zap.String("url", url),
				zap.String("method", method),
				zap.Int("status", resp.StatusCode),
				zap.Error(err))
			return res, err
		}

		f.logger.Debug("api.http_success",
			zap.String("url", url),
			zap.String("method", method),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)))
		return res, nil
	}

	metrics.ObserveRequest(route, method, "network_error", start)
	return Result{}, lastErr
}

func (f *Fetcher) newRequest(ctx context.Context, method, url string, opts Options, token string) (*http.Request, error) {
	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for k, v := range opts.Header {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", jsonContentType)
	}
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}
	if !opts.SkipAuth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	sent := !opts.SkipAuth && token != ""
	fields := []zap.Field{
		zap.String("method", method),
		zap.String("url", url),
		zap.Bool("has_token", sent),
	}
	if sent {
		fields = append(fields, zap.String("token", utils.MaskToken(token)))
	}
	f.logger.Debug("api.request", fields...)
	return req, nil
}

func (f *Fetcher) clientFor(mode CredentialsMode) *http.Client {
	if mode == CredentialsInclude {
		return f.withJar
	}
	return f.http
}

func (f *Fetcher) cancelled(route, method, url string, start time.Time) Result {
	metrics.ObserveRequest(route, method, "cancelled", start)
	f.logger.Info("api.request_cancelled",
		zap.String("method", method),
		zap.String("url", url),
		zap.Duration("elapsed", time.Since(start)))
	return Result{Cancelled: true}
}

// encodeBody returns the request body and the content type it needs.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Form:
		return b.encode()
	case string:
		return strings.NewReader(b), jsonContentType, nil
	case []byte:
		return bytes.NewReader(b), jsonContentType, nil
	case json.RawMessage:
		return bytes.NewReader(b), jsonContentType, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), jsonContentType, nil
	}
}

// decodeResponse turns a finished response into data or a typed error.
func decodeResponse(status int, header http.Header, body []byte, out any) error {
	isJSON := strings.Contains(header.Get("Content-Type"), jsonContentType)

	if status >= 200 && status < 300 {
		if out == nil || len(body) == 0 {
			return nil
		}
		switch dst := out.(type) {
		case *[]byte:
			*dst = append((*dst)[:0], body...)
			return nil
		case *string:
			if !isJSON {
				*dst = string(body)
				return nil
			}
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &ParseError{Status: status, Body: truncate(body), Err: err}
		}
		return nil
	}

	var payload any
	if len(body) > 0 {
		switch {
		case isJSON:
			if err := json.Unmarshal(body, &payload); err != nil {
				return &ParseError{Status: status, Body: truncate(body), Err: err}
			}
		case json.Valid(body):
			_ = json.Unmarshal(body, &payload)
		default:
			payload = string(body)
		}
	}
	return newHTTPError(status, payload)
}

func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

var idSegment = regexp.MustCompile(`^([0-9]+|[0-9a-fA-F-]{32,36})$`)

// RouteLabel collapses IDs and drops the query so endpoints make bounded metric labels.
func RouteLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	segs := strings.Split(endpoint, "/")
	for i, s := range segs {
		if s != "" && idSegment.MatchString(s) {
			segs[i] = ":id"
		}
	}
	return strings.Join(segs, "/")
}
