// Package platform is the typed REST client for the platform admin API.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/rideops/admin-console/internal/pkg/logger"
)

const (
	defaultTimeout = 15 * time.Second
	statusOK       = 200
	maxBodySize    = 4 << 20
)

// Client calls the platform REST API on behalf of a signed-in admin.
type Client struct {
	baseURL    string
	ua         string
	httpClient *http.Client
	logger     zerolog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new platform client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		ua:      "rideops-admin-console/1.0",
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: transport,
		},
		logger:       logger.Component("platform"),
		maxRetries:   2,
		retryBackoff: 250 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets how often idempotent reads are retried and the base
// backoff between attempts.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.ua = ua
	}
}

// do performs one API call and returns the envelope's data member.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, token string, body any) (gjson.Result, error) {
	if c == nil || c.httpClient == nil || c.baseURL == "" {
		return gjson.Result{}, &RequestError{Op: op, Kind: "config error", Err: ErrNotConfigured}
	}
	if strings.TrimSpace(token) == "" {
		return gjson.Result{}, &RequestError{Op: op, Kind: "config error", Err: ErrMissingToken}
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return gjson.Result{}, &RequestError{Op: op, Kind: "request error", Err: err}
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempts := 1
	if method == http.MethodGet && c.maxRetries > 0 {
		attempts += c.maxRetries
	}

	var (
		status int
		raw    []byte
		err    error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := c.retryBackoff << (attempt - 1)
			c.logger.Debug().
				Str("op", op).
				Int("attempt", attempt+1).
				Dur("backoff", wait).
				Msg("Retrying platform request")
			select {
			case <-ctx.Done():
				return gjson.Result{}, classifyRequestError(ctx, op, ctx.Err())
			case <-time.After(wait):
			}
		}

		status, raw, err = c.send(ctx, method, target, token, payload)
		if err != nil {
			err = classifyRequestError(ctx, op, err)
			if ctx.Err() != nil || !retryableError(err) {
				return gjson.Result{}, err
			}
			continue
		}
		if status != http.StatusTooManyRequests && status < 500 {
			break
		}
	}
	if err != nil {
		return gjson.Result{}, err
	}

	return decodeEnvelope(op, status, raw)
}

func (c *Client) send(ctx context.Context, method, target, token string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Platform request")

	return resp.StatusCode, raw, nil
}

// decodeEnvelope unwraps {status, message, data}.
func decodeEnvelope(op string, httpStatus int, raw []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(raw) {
		if httpStatus >= 300 {
			return gjson.Result{}, &RequestError{Op: op, Kind: "http error", StatusCode: httpStatus, Body: raw}
		}
		return gjson.Result{}, &RequestError{Op: op, Kind: "decode error", Body: raw, Err: ErrMalformedResponse}
	}

	doc := gjson.ParseBytes(raw)
	status := doc.Get("status")
	if !status.Exists() {
		if httpStatus >= 300 {
			return gjson.Result{}, &RequestError{Op: op, Kind: "http error", StatusCode: httpStatus, Body: raw}
		}
		return gjson.Result{}, &RequestError{Op: op, Kind: "decode error", Body: raw, Err: ErrMalformedResponse}
	}

	if code := status.Int(); code != statusOK {
		return gjson.Result{}, &EnvelopeError{
			Op:      op,
			Status:  code,
			Message: strings.TrimSpace(doc.Get("message").String()),
		}
	}

	return doc.Get("data"), nil
}

// unmarshal decodes a gjson value into v.
func unmarshal(op string, data gjson.Result, v any) error {
	if !data.Exists() || data.Type == gjson.Null {
		return &RequestError{Op: op, Kind: "decode error", Err: ErrMalformedResponse}
	}
	if err := json.Unmarshal([]byte(data.Raw), v); err != nil {
		return &RequestError{Op: op, Kind: "decode error", Body: []byte(data.Raw), Err: err}
	}
	return nil
}

func classifyRequestError(ctx context.Context, op string, err error) error {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return &RequestError{Op: op, Kind: "canceled", Err: err}
	}
	if isTimeoutError(ctx, err) {
		return &RequestError{Op: op, Kind: "timeout", Err: err}
	}
	if isNetworkError(err) {
		return &RequestError{Op: op, Kind: "network error", Err: err}
	}
	return &RequestError{Op: op, Kind: "request error", Err: err}
}

func retryableError(err error) bool {
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		return false
	}
	return reqErr.Kind == "timeout" || reqErr.Kind == "network error"
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}

	return false
}
