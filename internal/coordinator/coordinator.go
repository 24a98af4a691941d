package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-ha/reolink-nvr/addon/internal/configsync"
	"github.com/micro-ha/reolink-nvr/addon/internal/service"
)

// Poller runs one full refresh cycle. Satisfied by *service.Service.
type Poller interface {
	PollOnce(ctx context.Context) error
}

// Coordinator owns the refresh cadence for the device. It runs one poll per
// interval, supports coalesced manual refresh triggering, and records the
// outcome of the last attempt for the entities' availability judgment.
type Coordinator struct {
	poller    Poller
	config    *configsync.Manager
	refreshCh chan struct{}
	logger    *slog.Logger

	mu            sync.RWMutex
	lastSuccess   bool
	lastSuccessAt time.Time
	listeners     []func()
}

func New(poller Poller, cfg *configsync.Manager, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		poller:    poller,
		config:    cfg,
		refreshCh: make(chan struct{}, 1),
		logger:    logger,
	}
}

// TriggerRefresh requests an immediate poll. Triggers arriving while a poll
// is already pending coalesce into one.
func (c *Coordinator) TriggerRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// LastUpdateSuccess reports whether the most recent poll succeeded.
func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// LastSuccessAt returns the time of the most recent successful poll.
func (c *Coordinator) LastSuccessAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccessAt
}

// Subscribe registers a callback invoked after every poll attempt.
// Must be called before Run.
func (c *Coordinator) Subscribe(listener func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

func (c *Coordinator) Run(ctx context.Context) {
	for {
		interval := 5 * time.Second
		if cfg, ok := c.config.Get(); ok {
			interval = cfg.PollInterval()
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.refreshCh:
			timer.Stop()
		case <-timer.C:
		}
		c.pollOnce(ctx)
	}
}

// RefreshNow runs one poll synchronously, bypassing the cadence.
func (c *Coordinator) RefreshNow(ctx context.Context) {
	c.pollOnce(ctx)
}

func (c *Coordinator) pollOnce(ctx context.Context) {
	err := c.poller.PollOnce(ctx)
	if errors.Is(err, service.ErrIntegrationNotConfigured) {
		c.logger.Info("poll skipped; integration not configured")
		return
	}

	c.mu.Lock()
	if err != nil {
		c.lastSuccess = false
	} else {
		c.lastSuccess = true
		c.lastSuccessAt = time.Now().UTC()
	}
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("poll failed", "err", err)
	}
	for _, listener := range listeners {
		listener()
	}
}
