package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/relay/internal/logger"
)

const (
	// DefaultProbeInterval is used when the configured interval is not positive
	DefaultProbeInterval = 30 * time.Second
	// DefaultProbeTimeout bounds a single ping
	DefaultProbeTimeout = 2 * time.Second
)

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeStatus is the last known store health.
type ProbeStatus struct {
	OK        bool
	CheckedAt time.Time
	Err       string
	// Failures counts consecutive failed probes.
	Failures int
}

// StoreProbe pings the history store periodically so readyz and infra answer
// from memory instead of hitting the store on every scrape.
type StoreProbe struct {
	target   Pinger
	logger   logger.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once

	mu     sync.RWMutex
	status ProbeStatus
}

// NewStoreProbe creates a new store probe
func NewStoreProbe(target Pinger, log logger.Logger, interval time.Duration) *StoreProbe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	return &StoreProbe{
		target:   target,
		logger:   log,
		interval: interval,
		timeout:  DefaultProbeTimeout,
		stopCh:   make(chan struct{}),
	}
}

// Start probes once synchronously, then on every tick until Stop or ctx is done.
func (p *StoreProbe) Start(ctx context.Context) {
	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Check(ctx)
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the probe loop
func (p *StoreProbe) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// Check runs one probe and records the result.
func (p *StoreProbe) Check(ctx context.Context) ProbeStatus {
	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.target.Ping(pingCtx)
	cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	wasOK := p.status.OK || p.status.CheckedAt.IsZero()
	p.status.CheckedAt = time.Now()

	if err != nil {
		p.status.OK = false
		p.status.Err = err.Error()
		p.status.Failures++
		if wasOK {
			p.logger.Error("history store unreachable", logger.Error(err))
		} else {
			p.logger.Debug("history store still unreachable",
				logger.Int("consecutive_failures", p.status.Failures))
		}
		return p.status
	}

	if !wasOK {
		p.logger.Info("history store reachable again",
			logger.Int("after_failures", p.status.Failures))
	}
	p.status = ProbeStatus{OK: true, CheckedAt: p.status.CheckedAt}
	return p.status
}

// Status returns the last probe result. Zero CheckedAt means never probed.
func (p *StoreProbe) Status() ProbeStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.status
}
