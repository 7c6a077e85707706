package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apierrors "github.com/genroar/pharmacy-client/internal/errors"
)

// Scope headers attached to every request when a selection is present.
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderBranchID  = "X-Branch-ID"
	headerRequestID = "X-Request-ID"
)

type requestOptions struct {
	headers http.Header
	timeout time.Duration
}

type RequestOption func(*requestOptions)

// WithHeader adds a caller-supplied header. Caller headers are merged last
// and may override the defaults.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Set(key, value)
	}
}

// WithTimeout overrides the configured request timeout for this call.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.timeout = d
	}
}

// Do performs one pipeline call. body is JSON-encoded when non-nil; on a 2xx
// response the body is decoded into out when non-nil. Concurrent identical
// calls (same method, path and body) share a single network request and all
// receive the same classified outcome.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, options ...RequestOption) (*Result, error) {
	opts := requestOptions{timeout: c.timeout}
	for _, opt := range options {
		opt(&opts)
	}

	// Protected calls fail fast client-side when no token is present; a
	// wasted round trip helps nobody.
	if !isPublicPath(path) {
		if _, ok := c.sess.BearerToken(); !ok {
			return nil, apierrors.Wrapf(apierrors.ErrAuthRequired, "[Do] %s %s", method, path)
		}
	}

	if !isHealthPath(path) {
		if err := c.readiness.ensureReady(ctx); err != nil {
			return nil, err
		}
	}

	var bodyBytes []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "[Do] marshal body for %s %s", method, path)
		}
		bodyBytes = raw
	}

	key := coalesceKey(method, path, bodyBytes)
	v, err, shared := c.flight.Do(key, func() (any, error) {
		c.throttle(path)
		return c.roundTrip(ctx, method, path, bodyBytes, opts)
	})
	if shared {
		c.logger.Debug().Str("path", path).Msg("coalesced with in-flight request")
	}
	if err != nil {
		return nil, err
	}

	res := v.(*Result)
	if out != nil && res.StatusCode >= 200 && res.StatusCode < 300 && len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, out); err != nil {
			return nil, errors.Wrapf(err, "[Do] decode response for %s %s", method, path)
		}
	}
	return res, nil
}

// throttle enforces the minimum inter-request interval for a path. It
// delays, it never drops, and the delay itself is not cancellable.
func (c *Client) throttle(path string) {
	delay := c.limiter(path).Reserve().Delay()
	if delay > 0 {
		c.logger.Debug().Str("path", path).Dur("delay", delay).Msg("throttling request")
		time.Sleep(delay)
	}
}

func (c *Client) roundTrip(ctx context.Context, method, path string, bodyBytes []byte, opts requestOptions) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	requestID := uuid.NewString()
	headers := c.buildHeaders(path, requestID, opts.headers)

	started := time.Now()
	resp, respBody, err := c.issue(ctx, method, c.baseURL+path, bodyBytes, headers)
	if err != nil {
		c.logger.Warn().Str("request_id", requestID).Str("path", path).Err(err).Msg("request failed")
		return nil, err
	}

	c.logger.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request completed")

	return c.classify(method, path, resp.StatusCode, respBody)
}

func (c *Client) buildHeaders(path, requestID string, extra http.Header) http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(headerRequestID, requestID)

	scope := c.currentScope()
	if scope.CompanyID != "" {
		headers.Set(HeaderCompanyID, scope.CompanyID)
	}
	if scope.BranchID != "" {
		headers.Set(HeaderBranchID, scope.BranchID)
	}

	if !isHealthPath(path) {
		if token, ok := c.sess.BearerToken(); ok {
			headers.Set("Authorization", "Bearer "+token)
		}
	}

	// Caller headers win.
	for k, vs := range extra {
		headers.Del(k)
		for _, v := range vs {
			headers.Add(k, v)
		}
	}
	return headers
}

// issue performs the HTTP exchange, applying the retry policy to transport
// failures only. HTTP-level outcomes are never retried here.
func (c *Client) issue(ctx context.Context, method, url string, bodyBytes []byte, headers http.Header) (*http.Response, []byte, error) {
	attempt := func() (*http.Response, []byte, error) {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "[issue] build request %s %s", method, url)
		}
		req.Header = headers

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, nil, classifyTransport(err)
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, classifyTransport(err)
		}
		return resp, respBody, nil
	}

	if c.retry.MaxAttempts <= 1 {
		return attempt()
	}

	var resp *http.Response
	var respBody []byte
	op := func() error {
		r, b, err := attempt()
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		resp, respBody = r, b
		return nil
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retry.Interval), c.retry.MaxAttempts-1),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, nil, err
	}
	return resp, respBody, nil
}

// classify converts a non-2xx response into the error taxonomy. The one
// exception is the account-disabled marker, which is returned unthrown so
// callers have a single place to check it regardless of the status code the
// server picked.
func (c *Client) classify(method, path string, status int, body []byte) (*Result, error) {
	if status >= 200 && status < 300 {
		return &Result{StatusCode: status, Body: body}, nil
	}

	var raw map[string]any
	jsonBody := json.Unmarshal(body, &raw) == nil

	if jsonBody && isAccountDisabled(status, raw) {
		return &Result{
			StatusCode:      status,
			Body:            body,
			AccountDisabled: true,
			Message:         messageFrom(raw),
			Raw:             raw,
		}, nil
	}

	switch status {
	case http.StatusUnauthorized:
		reason := "session expired"
		if jsonBody && messageFrom(raw) != "" {
			reason = messageFrom(raw)
		}
		c.sess.Invalidate(reason)
		return nil, apierrors.Wrapf(apierrors.ErrAuthRequired, "[Do] %s %s: %s", method, path, reason)
	case http.StatusTooManyRequests:
		msg := "too many requests"
		if jsonBody && messageFrom(raw) != "" {
			msg = messageFrom(raw)
		}
		return nil, apierrors.Wrapf(apierrors.ErrRateLimited, "[Do] %s %s: %s", method, path, msg)
	}

	if jsonBody {
		return nil, parseAPIError(status, raw)
	}
	return nil, &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}
}

// classifyTransport normalizes transport failures into the two retryable
// conditions the UI distinguishes: timed out vs unreachable. Caller
// cancellation passes through untouched.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apierrors.Wrapf(apierrors.ErrRequestTimeout, "%v", err)
	}
	return apierrors.Wrapf(apierrors.ErrServerUnreachable, "%v", err)
}

// coalesceKey identifies a request by method, path (query included) and a
// hash of the body, so concurrent mutations with different payloads are not
// accidentally merged.
func coalesceKey(method, path string, body []byte) string {
	if len(body) == 0 {
		return method + " " + path
	}
	sum := sha256.Sum256(body)
	return method + " " + path + " " + hex.EncodeToString(sum[:8])
}
