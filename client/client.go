// Package client is the single choke-point for every outbound call to the
// pharmacy backend. It builds headers, gates calls behind the readiness
// probe, coalesces duplicate in-flight requests, throttles bursts per
// endpoint and classifies every response or transport failure before it
// reaches a caller.
package client

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/genroar/pharmacy-client/event"
	"github.com/genroar/pharmacy-client/internal/config"
	"github.com/genroar/pharmacy-client/session"
)

// Paths reachable without a bearer token. Everything else is protected.
const (
	PathHealth   = "/health"
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
)

// Scope is the tenant selection attached to every request. Empty fields are
// omitted from the headers.
type Scope struct {
	CompanyID string
	BranchID  string
}

// ScopeProvider returns the caller's current scope selection. It is invoked
// immediately before headers are built on every call, so a scope change is
// visible on the very next request.
type ScopeProvider func() Scope

// RetryPolicy is the pipeline-wide retry behaviour for transport failures.
// HTTP-level outcomes, including 429, are never retried.
type RetryPolicy struct {
	MaxAttempts uint64 // total attempts, 1 disables retry
	Interval    time.Duration
}

// Client owns all per-instance request state. Multiple independent clients
// do not interfere, which keeps tests hermetic.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	sess       *session.Manager
	bus        *event.Bus
	logger     zerolog.Logger
	retry      RetryPolicy

	scopeMu sync.RWMutex
	scopeFn ScopeProvider

	flight           singleflight.Group
	limitersMu       sync.Mutex
	limiters         map[string]*rate.Limiter
	throttleInterval time.Duration

	readiness *prober
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport (primarily for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetryPolicy enables uniform transport-failure retries.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithThrottleInterval overrides the minimum spacing between requests to the
// same endpoint path.
func WithThrottleInterval(d time.Duration) Option {
	return func(c *Client) {
		c.throttleInterval = d
	}
}

func New(cfg config.Config, sess *session.Manager, bus *event.Bus, logger zerolog.Logger, options ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[client.New] config is required")
	}
	if sess == nil {
		return nil, errors.New("[client.New] session manager is required")
	}
	if bus == nil {
		return nil, errors.New("[client.New] event bus is required")
	}
	if cfg.GetBaseURL() == "" {
		return nil, errors.New("[client.New] base URL is required")
	}

	c := &Client{
		baseURL:          strings.TrimRight(cfg.GetBaseURL(), "/"),
		httpClient:       &http.Client{},
		timeout:          cfg.GetRequestTimeout(),
		sess:             sess,
		bus:              bus,
		logger:           logger.With().Str("component", "client").Logger(),
		retry:            RetryPolicy{MaxAttempts: 1},
		limiters:         make(map[string]*rate.Limiter),
		throttleInterval: cfg.GetThrottleInterval(),
	}
	for _, opt := range options {
		opt(c)
	}

	c.readiness = newProber(proberConfig{
		baseURL:      c.baseURL,
		managed:      cfg.GetManagedBackend(),
		attempts:     cfg.GetProbeAttempts(),
		interval:     cfg.GetProbeInterval(),
		probeTimeout: cfg.GetProbeTimeout(),
	}, c.httpClient, c.logger)

	return c, nil
}

// SetScopeProvider registers the accessor for the current company/branch
// selection. Calls made before registration simply omit the scope headers.
func (c *Client) SetScopeProvider(fn ScopeProvider) {
	c.scopeMu.Lock()
	defer c.scopeMu.Unlock()
	c.scopeFn = fn
}

// Session exposes the session manager so the endpoint surface can establish
// and tear down sessions through the one owner.
func (c *Client) Session() *session.Manager {
	return c.sess
}

// ResetReadiness clears the terminal ready state, used after the host
// observes the backend process was restarted.
func (c *Client) ResetReadiness() {
	c.readiness.reset()
}

func (c *Client) currentScope() Scope {
	c.scopeMu.RLock()
	fn := c.scopeFn
	c.scopeMu.RUnlock()
	if fn == nil {
		return Scope{}
	}
	return fn()
}

// limiter returns the per-path rate limiter, creating it on first use. The
// entry lives for the life of the client.
func (c *Client) limiter(path string) *rate.Limiter {
	c.limitersMu.Lock()
	defer c.limitersMu.Unlock()
	l, ok := c.limiters[path]
	if !ok {
		l = rate.NewLimiter(rate.Every(c.throttleInterval), 1)
		c.limiters[path] = l
	}
	return l
}

// isPublicPath reports whether the path is reachable without a token. The
// query string does not participate in the check.
func isPublicPath(path string) bool {
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	switch path {
	case PathHealth, PathLogin, PathRegister:
		return true
	}
	return false
}

func isHealthPath(path string) bool {
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	return path == PathHealth
}
