package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/genroar/pharmacy-client/event"
	apierrors "github.com/genroar/pharmacy-client/internal/errors"
	"github.com/genroar/pharmacy-client/store"
)

// Manager is the single source of truth for the bearer credential and the
// logged-in user. The in-memory pair and the persisted pair are mirrored on
// every write; the persisted copy is also re-read just in time when memory
// is empty, so a login performed by another process becomes visible without
// a restart.
type Manager struct {
	mu    sync.Mutex
	token string
	user  *User

	store     store.Store
	bus       *event.Bus
	logger    zerolog.Logger
	nowFunc   func() time.Time
	stopWatch func()
}

// Manager satisfies oauth2.TokenSource so it can be handed to anything that
// consumes a standard token source.
var _ oauth2.TokenSource = (*Manager)(nil)

type ManagerOption func(*Manager)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func NewManager(st store.Store, bus *event.Bus, logger zerolog.Logger, options ...ManagerOption) (*Manager, error) {
	if st == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if bus == nil {
		return nil, errors.New("[NewManager] event bus is required")
	}

	m := &Manager{
		store:   st,
		bus:     bus,
		logger:  logger.With().Str("component", "session").Logger(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}

	m.restore()

	stop, err := st.Watch(m.resync)
	if err != nil {
		m.logger.Warn().Err(err).Msg("store watch unavailable, relying on just-in-time re-reads")
	} else {
		m.stopWatch = stop
	}
	return m, nil
}

// Establish records a freshly authenticated session. The in-memory pair and
// the persisted pair are written in one locked update.
func (m *Manager) Establish(token string, user *User) error {
	if token == "" {
		return errors.New("[Establish] token is required")
	}

	rawUser := ""
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			return errors.Wrap(err, "[Establish] marshal user")
		}
		rawUser = string(raw)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.SetAll(map[string]string{
		store.KeyToken: token,
		store.KeyUser:  rawUser,
	}); err != nil {
		return errors.Wrap(err, "[Establish] persist session")
	}
	m.token = token
	m.user = user
	m.logger.Info().Str("user_id", userID(user)).Msg("session established")
	return nil
}

// Logout clears the session without publishing an auth-required event; the
// caller asked for it, there is nothing to announce.
func (m *Manager) Logout() {
	m.clear()
	m.logger.Info().Msg("logged out")
}

// Invalidate tears the session down in response to a server signal (an HTTP
// 401 or a realtime deactivation message). It is idempotent and safe to call
// from multiple producers concurrently; the auth-required event is published
// exactly once per non-empty to empty transition.
func (m *Manager) Invalidate(reason string) {
	if !m.clear() {
		return
	}
	m.logger.Warn().Str("reason", reason).Msg("session invalidated")
	m.bus.Publish(event.Event{
		Type:    event.TypeAuthRequired,
		Message: reason,
	})
}

// BearerToken returns the current token and whether one is present,
// re-reading the persisted copy when memory is empty.
func (m *Manager) BearerToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		m.restoreLocked()
	}
	return m.token, m.token != ""
}

// Token implements oauth2.TokenSource.
func (m *Manager) Token() (*oauth2.Token, error) {
	token, ok := m.BearerToken()
	if !ok {
		return nil, apierrors.ErrNoSession
	}
	t := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if exp, err := m.expiry(token); err == nil {
		t.Expiry = exp
	}
	return t, nil
}

// CurrentUser returns the logged-in user record, or nil.
func (m *Manager) CurrentUser() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		m.restoreLocked()
	}
	return m.user
}

// Close stops the store watch. It does not clear the session.
func (m *Manager) Close() {
	if m.stopWatch != nil {
		m.stopWatch()
	}
}

// clear removes the session from memory and storage. It reports whether
// there was a session to clear.
func (m *Manager) clear() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	had := m.token != ""
	if err := m.store.Clear(store.KeyToken, store.KeyUser); err != nil {
		m.logger.Error().Err(err).Msg("failed to clear persisted session")
	}
	m.token = ""
	m.user = nil
	return had
}

func (m *Manager) restore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreLocked()
}

// restoreLocked re-reads the persisted pair. Must be called with the lock
// held.
func (m *Manager) restoreLocked() {
	token, ok := m.store.Get(store.KeyToken)
	if !ok || token == "" {
		m.token = ""
		m.user = nil
		return
	}
	m.token = token
	m.user = nil
	if raw, ok := m.store.Get(store.KeyUser); ok && raw != "" {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			m.user = &u
		}
	}
}

// resync runs on store change notifications (another process logged in or
// out).
func (m *Manager) resync() {
	m.restore()
	m.logger.Debug().Msg("session re-read from storage")
}

func userID(u *User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
