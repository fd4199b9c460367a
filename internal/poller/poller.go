// Package poller drives the bridge on a fixed interval. All freshness in
// the system is pull-based through this loop; the bridge itself never
// refreshes in the background.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"npbridge/internal/domain"
)

// Poller polls the now-playing source and logs playback transitions.
// It is the single logical owner of the bridge's cache: one loop, one
// mutator, matching the bridge's intended usage.
type Poller struct {
	logger   *zap.Logger
	source   domain.NowPlayingSource
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	seeded       bool
	lastIdentity domain.TrackIdentity
	lastState    domain.PlayerState
}

// NewPoller creates a poller over the given source
func NewPoller(logger *zap.Logger, cfg domain.Config, source domain.NowPlayingSource) *Poller {
	return &Poller{
		logger:   logger,
		source:   source,
		interval: time.Duration(cfg.PollIntervalMs()) * time.Millisecond,
	}
}

// Start launches the polling loop in a goroutine. It returns immediately.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	p.wg.Add(1)
	go p.runLoop(loopCtx)

	p.logger.Info("Poller started", zap.Duration("interval", p.interval))
	return nil
}

// Stop gracefully stops the polling loop
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	// Wait for the loop goroutine, but respect the shutdown deadline
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Poller stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Poller shutdown timed out waiting for loop")
		return ctx.Err()
	}
}

func (p *Poller) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Prime immediately so startup state is logged without waiting a tick
	p.poll()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Poll loop stopped")
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll performs one query cycle and logs identity/state transitions
func (p *Poller) poll() {
	state := p.source.PlayerState()
	snapshot := p.source.CurrentTrackInfo()

	identity := domain.TrackIdentity("")
	if snapshot.Valid {
		identity = snapshot.Identity()
	}

	p.mu.Lock()
	identityChanged := !p.seeded || identity != p.lastIdentity
	stateChanged := !p.seeded || state != p.lastState
	p.seeded = true
	p.lastIdentity = identity
	p.lastState = state
	p.mu.Unlock()

	if !identityChanged && !stateChanged {
		return
	}

	if !snapshot.Valid {
		p.logger.Info("Nothing playing", zap.String("state", state.String()))
		return
	}

	if identityChanged {
		p.logger.Info("Now playing",
			zap.String("title", snapshot.Title),
			zap.String("artist", snapshot.Artist),
			zap.String("album", snapshot.Album),
			zap.String("state", state.String()),
			zap.Float64("duration", snapshot.Duration),
			zap.Float64("position", p.source.PlayerPosition()))
		return
	}

	p.logger.Info("Playback state changed",
		zap.String("title", snapshot.Title),
		zap.String("state", state.String()))
}
