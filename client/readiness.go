package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	apierrors "github.com/genroar/pharmacy-client/internal/errors"
)

// Readiness states. Only ready is sticky; a failed round is probed again on
// the next call so a user retry can recover.
const (
	readinessUnknown int32 = iota
	readinessReady
	readinessNotReady
)

type proberConfig struct {
	baseURL      string
	managed      bool
	attempts     int
	interval     time.Duration
	probeTimeout time.Duration
}

// prober gates protected calls until the backend has finished starting.
// It only applies when the client runs alongside a locally managed backend
// process; against an always-on remote server it is a no-op.
type prober struct {
	cfg        proberConfig
	httpClient *http.Client
	logger     zerolog.Logger

	state        atomic.Int32
	flight       singleflight.Group
	secondChance atomic.Bool
}

func newProber(cfg proberConfig, httpClient *http.Client, logger zerolog.Logger) *prober {
	if cfg.attempts <= 0 {
		cfg.attempts = 1
	}
	p := &prober{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "readiness").Logger(),
	}
	p.secondChance.Store(true)
	return p
}

// ensureReady blocks until the backend reports healthy or the probe budget
// is exhausted. Concurrent callers share one probe loop. Exhaustion does not
// panic or hang; it surfaces the typed not-reachable condition and the
// caller decides whether to retry.
func (p *prober) ensureReady(ctx context.Context) error {
	if !p.cfg.managed {
		return nil
	}
	if p.state.Load() == readinessReady {
		return nil
	}

	_, err, _ := p.flight.Do("probe", func() (any, error) {
		if p.state.Load() == readinessReady {
			return nil, nil
		}
		if p.waitForReady(ctx) {
			p.state.Store(readinessReady)
			p.logger.Info().Msg("backend ready")
			return nil, nil
		}
		// One extra bounded round absorbs the race where the backend
		// finishes starting just after the first budget ran out.
		if p.secondChance.CompareAndSwap(true, false) {
			p.logger.Debug().Msg("probe budget exhausted, one more round")
			if p.waitForReady(ctx) {
				p.state.Store(readinessReady)
				return nil, nil
			}
		}
		p.state.Store(readinessNotReady)
		return nil, apierrors.Wrapf(apierrors.ErrBackendNotReady, "[ensureReady] after %d probes", p.cfg.attempts)
	})
	return err
}

// waitForReady runs one bounded round of health probes: attempts probes at a
// fixed interval, each with its own short timeout.
func (p *prober) waitForReady(ctx context.Context) bool {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.cfg.interval), uint64(p.cfg.attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		return p.probe(ctx)
	}, policy)
	return err == nil
}

func (p *prober) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.baseURL+PathHealth, nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierrors.Wrapf(apierrors.ErrBackendNotReady, "health returned %d", resp.StatusCode)
	}
	return nil
}

// reset returns the prober to unknown, used after a detected backend
// restart.
func (p *prober) reset() {
	p.state.Store(readinessUnknown)
	p.secondChance.Store(true)
	p.logger.Debug().Msg("readiness reset")
}
