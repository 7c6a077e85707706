// Package realtime consumes the backend's server-push stream and translates
// its messages into either forced logout or a data-change fan-out on the
// local event bus. It runs independently of the request/response cycle, so
// an account deactivation reaches the client even when no request is in
// flight.
package realtime

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/genroar/pharmacy-client/event"
	"github.com/genroar/pharmacy-client/internal/config"
	apierrors "github.com/genroar/pharmacy-client/internal/errors"
	"github.com/genroar/pharmacy-client/session"
)

// readTimeout is the silence budget; any message, keepalives included,
// refreshes it.
const readTimeout = 60 * time.Second

// Connection states.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnectPending
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectPending:
		return "reconnect-pending"
	default:
		return "disconnected"
	}
}

// Channel is one long-lived subscription to the push stream. The token
// travels as a query parameter because the stream transport does not carry
// custom headers.
type Channel struct {
	streamURL string
	sess      *session.Manager
	bus       *event.Bus
	logger    zerolog.Logger
	dialer    *websocket.Dialer
	reconnect backoff.BackOff

	state     stateValue
	done      chan struct{}
	closeOnce sync.Once
}

type stateValue struct {
	mu sync.RWMutex
	s  State
}

func (v *stateValue) set(s State) {
	v.mu.Lock()
	v.s = s
	v.mu.Unlock()
}

func (v *stateValue) get() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.s
}

type Option func(*Channel)

// WithReconnect enables the reconnect-pending loop. Without it the channel
// lives for a single connection and the owner re-runs it.
func WithReconnect(policy backoff.BackOff) Option {
	return func(ch *Channel) {
		ch.reconnect = policy
	}
}

// WithDialer replaces the websocket dialer (primarily for testing).
func WithDialer(d *websocket.Dialer) Option {
	return func(ch *Channel) {
		ch.dialer = d
	}
}

func New(cfg config.Config, sess *session.Manager, bus *event.Bus, logger zerolog.Logger, options ...Option) (*Channel, error) {
	if cfg == nil {
		return nil, errors.New("[realtime.New] config is required")
	}
	if sess == nil {
		return nil, errors.New("[realtime.New] session manager is required")
	}
	if bus == nil {
		return nil, errors.New("[realtime.New] event bus is required")
	}

	streamURL, err := buildStreamURL(cfg.GetBaseURL(), cfg.GetStreamPath())
	if err != nil {
		return nil, err
	}

	ch := &Channel{
		streamURL: streamURL,
		sess:      sess,
		bus:       bus,
		logger:    logger.With().Str("component", "realtime").Logger(),
		dialer:    websocket.DefaultDialer,
		done:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(ch)
	}
	return ch, nil
}

// Run connects and consumes the stream until the context ends, Close is
// called, or the connection drops with no reconnect policy configured.
func (ch *Channel) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-ch.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	defer ch.state.set(StateDisconnected)

	for {
		ch.state.set(StateConnecting)
		conn, err := ch.dial(ctx)
		if err != nil {
			if next, retry := ch.nextReconnect(ctx, err); retry {
				ch.wait(ctx, next)
				continue
			}
			return err
		}

		ch.state.set(StateConnected)
		if ch.reconnect != nil {
			ch.reconnect.Reset()
		}
		err = ch.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return apierrors.ErrChannelClosed
		}
		if next, retry := ch.nextReconnect(ctx, err); retry {
			ch.wait(ctx, next)
			continue
		}
		return err
	}
}

// Close ends the subscription (idempotent). Run returns ErrChannelClosed.
func (ch *Channel) Close() {
	ch.closeOnce.Do(func() {
		close(ch.done)
	})
}

// State returns the current connection state.
func (ch *Channel) State() State {
	return ch.state.get()
}

func (ch *Channel) dial(ctx context.Context) (*websocket.Conn, error) {
	token, ok := ch.sess.BearerToken()
	if !ok {
		return nil, apierrors.Wrapf(apierrors.ErrAuthRequired, "[dial] stream requires a session")
	}

	u, err := url.Parse(ch.streamURL)
	if err != nil {
		return nil, errors.Wrap(err, "[dial] parse stream URL")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := ch.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, apierrors.Wrapf(apierrors.ErrServerUnreachable, "[dial] %v", err)
	}
	ch.logger.Info().Msg("stream connected")
	return conn, nil
}

func (ch *Channel) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return apierrors.ErrChannelClosed
			}
			return apierrors.Wrapf(apierrors.ErrServerUnreachable, "[readLoop] %v", err)
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			ch.logger.Warn().Err(err).Msg("unparseable stream message")
			continue
		}
		ch.dispatch(env)
	}
}

func (ch *Channel) dispatch(env Envelope) {
	switch env.Type {
	case TypeConnected:
		ch.logger.Debug().Msg("stream handshake received")
	case TypePing:
		// Keepalive; the refreshed read deadline is the whole point.
	case TypeAccountDeactivated:
		// Independent of the HTTP 401 path: a deactivation can land while
		// no request is in flight.
		ch.sess.Invalidate(reasonOr(env.Message, "account deactivated"))
		ch.bus.Publish(event.Event{
			Type:    event.TypeAccountDisabled,
			Message: env.Message,
			Data:    env.Data,
		})
	case TypeAccountReactivated:
		ch.bus.Publish(event.Event{
			Type:    event.TypeAccountReactivated,
			Message: env.Message,
			Data:    env.Data,
		})
	case TypeProductChanged, TypeSaleCompleted, TypeRefundProcessed, TypeCustomerChanged, TypeInventoryChanged:
		ch.bus.Publish(event.Event{
			Type:    event.TypeDataChanged,
			Entity:  entityFor(env.Type),
			Message: env.Message,
			Data:    env.Data,
		})
	default:
		ch.logger.Debug().Str("type", env.Type).Msg("ignoring unknown stream message")
	}
}

// nextReconnect decides whether to enter reconnect-pending and for how long.
func (ch *Channel) nextReconnect(ctx context.Context, cause error) (time.Duration, bool) {
	if ch.reconnect == nil || ctx.Err() != nil {
		return 0, false
	}
	next := ch.reconnect.NextBackOff()
	if next == backoff.Stop {
		return 0, false
	}
	ch.state.set(StateReconnectPending)
	ch.logger.Warn().Err(cause).Dur("retry_in", next).Msg("stream dropped, reconnecting")
	return next, true
}

func (ch *Channel) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func entityFor(msgType string) string {
	switch msgType {
	case TypeProductChanged:
		return event.EntityProduct
	case TypeSaleCompleted:
		return event.EntitySale
	case TypeRefundProcessed:
		return event.EntityRefund
	case TypeCustomerChanged:
		return event.EntityCustomer
	case TypeInventoryChanged:
		return event.EntityInventory
	}
	return ""
}

func reasonOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func buildStreamURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.Wrap(err, "[buildStreamURL] parse base URL")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}
