package client_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/genroar/pharmacy-client/client"
	"github.com/genroar/pharmacy-client/event"
	"github.com/genroar/pharmacy-client/internal/config"
	"github.com/genroar/pharmacy-client/session"
	"github.com/genroar/pharmacy-client/store"
)

// testConfig overrides the env-backed config so tests are hermetic.
type testConfig struct {
	config.API
	config.Realtime
	config.Runtime

	baseURL      string
	timeout      time.Duration
	throttle     time.Duration
	managed      bool
	attempts     int
	interval     time.Duration
	probeTimeout time.Duration
}

func (c testConfig) GetBaseURL() string                { return c.baseURL }
func (c testConfig) GetRequestTimeout() time.Duration  { return c.timeout }
func (c testConfig) GetThrottleInterval() time.Duration { return c.throttle }
func (c testConfig) GetManagedBackend() bool           { return c.managed }
func (c testConfig) GetProbeAttempts() int             { return c.attempts }
func (c testConfig) GetProbeInterval() time.Duration   { return c.interval }
func (c testConfig) GetProbeTimeout() time.Duration    { return c.probeTimeout }

// testFixture holds all client dependencies
type testFixture struct {
	client *client.Client
	sess   *session.Manager
	store  *store.MemoryStore
	bus    *event.Bus

	authEvents atomic.Int32
}

func setupTestFixture(t *testing.T, cfg testConfig, options ...client.Option) *testFixture {
	t.Helper()

	if cfg.timeout == 0 {
		cfg.timeout = 2 * time.Second
	}
	if cfg.attempts == 0 {
		cfg.attempts = 1
	}
	if cfg.interval == 0 {
		cfg.interval = 10 * time.Millisecond
	}
	if cfg.probeTimeout == 0 {
		cfg.probeTimeout = time.Second
	}

	st := store.NewMemoryStore()
	bus := event.NewBus(zerolog.Nop())
	sess, err := session.NewManager(st, bus, zerolog.Nop())
	require.NoError(t, err)

	c, err := client.New(cfg, sess, bus, zerolog.Nop(), options...)
	require.NoError(t, err)

	f := &testFixture{client: c, sess: sess, store: st, bus: bus}
	unsubscribe := bus.Subscribe(func(event.Event) {
		f.authEvents.Add(1)
	}, event.TypeAuthRequired)
	t.Cleanup(unsubscribe)
	t.Cleanup(sess.Close)
	return f
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.sess.Establish("test-token", &session.User{ID: "user-1", Email: "jo@example.com"}))
}
