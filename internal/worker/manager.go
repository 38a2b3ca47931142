// Package worker keeps every channel's timeline built ahead of the wall clock.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"github.com/stwalsh4118/hermes-playout/internal/playout"
)

// Playout is the part of playout.Service the workers drive
type Playout interface {
	State(ctx context.Context, channelID uuid.UUID) (*playout.State, error)
	Build(ctx context.Context, channelID uuid.UUID, mode playout.BuildMode, start, finish time.Time) (*playout.BuildResult, error)
	TrimHistory(ctx context.Context, channelID uuid.UUID, before time.Time) (int, error)
	Evict(channelID uuid.UUID)
}

// ChannelLister lists the channels that should have a worker
type ChannelLister interface {
	List(ctx context.Context) ([]*models.Channel, error)
}

// Options configures a Manager
type Options struct {
	// Lookahead is how far past now each timeline is kept built
	Lookahead time.Duration
	// Interval is the time between ticks of one channel worker and between channel list syncs
	Interval time.Duration
	// Retention is how long finished items are kept; zero keeps everything
	Retention time.Duration
	// FailureThreshold consecutive failed ticks pause a channel for Cooldown
	FailureThreshold int
	Cooldown         time.Duration
	Now              func() time.Time
}

// Manager runs one goroutine per channel
type Manager struct {
	playout  Playout
	channels ChannelLister
	opts     Options
	log      zerolog.Logger

	mu      sync.Mutex
	workers map[uuid.UUID]context.CancelFunc
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a worker manager
func NewManager(p Playout, channels ChannelLister, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 3
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 6 * opts.Interval
	}
	return &Manager{
		playout:  p,
		channels: channels,
		opts:     opts,
		log:      logger.WithComponent("worker"),
		workers:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start launches a worker for every channel and a loop that picks up added or removed channels
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return errors.New("worker manager already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	if err := m.Sync(ctx); err != nil {
		cancel()
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
		return err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Sync(ctx); err != nil && ctx.Err() == nil {
					m.log.Error().Err(err).Msg("Failed to sync channel workers")
				}
			}
		}
	}()

	m.log.Info().
		Dur("lookahead", m.opts.Lookahead).
		Dur("interval", m.opts.Interval).
		Msg("Playout workers started")
	return nil
}

// Stop cancels every worker and waits for them to exit
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	for _, stop := range m.workers {
		stop()
	}
	m.workers = make(map[uuid.UUID]context.CancelFunc)
	m.mu.Unlock()

	m.wg.Wait()
	m.log.Info().Msg("Playout workers stopped")
}

// Sync starts workers for new channels and stops workers of deleted ones
func (m *Manager) Sync(ctx context.Context) error {
	channels, err := m.channels.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list channels: %w", err)
	}

	m.mu.Lock()
	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return err
	}

	seen := make(map[uuid.UUID]bool, len(channels))
	for _, ch := range channels {
		seen[ch.ID] = true
		if _, running := m.workers[ch.ID]; running {
			continue
		}
		wctx, cancel := context.WithCancel(ctx)
		m.workers[ch.ID] = cancel
		m.wg.Add(1)
		go m.run(wctx, ch.ID)
	}
	var stopped []uuid.UUID
	for id, cancel := range m.workers {
		if !seen[id] {
			cancel()
			delete(m.workers, id)
			stopped = append(stopped, id)
		}
	}
	m.mu.Unlock()

	// outside the lock: eviction waits for the stopped worker's build to return
	for _, id := range stopped {
		m.playout.Evict(id)
		m.log.Info().
			Str("channel_id", id.String()).
			Msg("Channel worker stopped")
	}
	return nil
}

// Running returns the channels that currently have a worker
func (m *Manager) Running() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, 0, len(m.workers))
	for id := range m.workers {
		out = append(out, id)
	}
	return out
}

func (m *Manager) run(ctx context.Context, channelID uuid.UUID) {
	defer m.wg.Done()
	log := m.log.With().Str("channel_id", channelID.String()).Logger()
	log.Debug().Msg("Channel worker started")

	breaker := NewBreaker(m.opts.FailureThreshold, m.opts.Cooldown, m.opts.Now)
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()
	for {
		err := breaker.Call(func() error { return m.Tick(ctx, channelID) })
		switch {
		case err == nil, ctx.Err() != nil:
		case errors.Is(err, ErrBreakerOpen):
			log.Debug().Msg("Channel worker paused after repeated failures")
		default:
			log.Warn().
				Err(err).
				Int("failures", breaker.Failures()).
				Str("breaker", breaker.State().String()).
				Msg("Channel worker tick failed")
		}
		select {
		case <-ctx.Done():
			log.Debug().Msg("Channel worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick extends a channel's timeline when it covers less than half the lookahead and then
// trims history older than the retention
func (m *Manager) Tick(ctx context.Context, channelID uuid.UUID) error {
	now := m.opts.Now().UTC()

	state, err := m.playout.State(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	end, ok := state.TimelineEnd()
	if !ok || end.Sub(now) < m.opts.Lookahead/2 {
		if _, err := m.playout.Build(ctx, channelID, playout.BuildModeContinue, now, now.Add(m.opts.Lookahead)); err != nil {
			return fmt.Errorf("failed to extend timeline: %w", err)
		}
	}

	if m.opts.Retention > 0 {
		if _, err := m.playout.TrimHistory(ctx, channelID, now.Add(-m.opts.Retention)); err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
	}
	return nil
}
