package store

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/relay/internal/logger"
)

// RetryPolicy controls how long a driver waits for its backend at startup.
type RetryPolicy struct {
	ConnectTimeout time.Duration // total time allowed for connection attempts (ex: 30s)
	RetryInterval  time.Duration // initial wait between retries (ex: 2s, grows exponentially)
	MaxWait        time.Duration // max wait between retries (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping attempt (ex: 2s)
	WarnThreshold  int           // warn after this many attempts
}

// DefaultRetryPolicy is used by drivers without dedicated knobs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		ConnectTimeout: 30 * time.Second,
		RetryInterval:  2 * time.Second,
		MaxWait:        10 * time.Second,
		PingTimeout:    5 * time.Second,
		WarnThreshold:  3,
	}
}

// Validate ensures all retry values are usable.
func (p RetryPolicy) Validate() error {
	if p.ConnectTimeout <= 0 {
		return fmt.Errorf("ConnectTimeout must be > 0, got %v", p.ConnectTimeout)
	}
	if p.RetryInterval <= 0 {
		return fmt.Errorf("RetryInterval must be > 0, got %v", p.RetryInterval)
	}
	if p.MaxWait <= 0 {
		return fmt.Errorf("MaxWait must be > 0, got %v", p.MaxWait)
	}
	if p.PingTimeout <= 0 {
		return fmt.Errorf("PingTimeout must be > 0, got %v", p.PingTimeout)
	}
	if p.WarnThreshold < 0 {
		return fmt.Errorf("WarnThreshold must be >= 0, got %d", p.WarnThreshold)
	}
	return nil
}

// PingFunc is one reachability check against a backend.
type PingFunc func(ctx context.Context) error

// WaitReady pings until the backend answers, backing off exponentially up to
// MaxWait. It gives up when ConnectTimeout elapses or ctx is done.
func WaitReady(ctx context.Context, backend, addr string, ping PingFunc, policy RetryPolicy, log logger.Logger) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	log = log.With(logger.String("backend", backend), logger.String("addr", addr))

	ctx, cancel := context.WithTimeout(ctx, policy.ConnectTimeout)
	defer cancel()

	log.Info("connecting", logger.Duration("timeout", policy.ConnectTimeout))
	start := time.Now()
	attempt := 0
	wait := policy.RetryInterval

	for {
		attempt++

		pingCtx, pingCancel := context.WithTimeout(ctx, policy.PingTimeout)
		err := ping(pingCtx)
		pingCancel()

		if err == nil {
			if attempt > 1 {
				log.Warn("connected after retry",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				log.Info("connected")
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("backend unavailable - failed to connect after timeout",
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("%s unavailable at %s after %d attempts (timeout: %v): %w",
				backend, addr, attempt, policy.ConnectTimeout, err)

		case <-timer.C:
			logRetry(log, attempt, timeLeft(ctx), wait, policy.WarnThreshold, err)
			wait *= 2
			if wait > policy.MaxWait {
				wait = policy.MaxWait
			}
		}
	}
}

func logRetry(log logger.Logger, attempt int, remaining, nextRetry time.Duration, warnThreshold int, err error) {
	switch {
	case remaining < 10*time.Second:
		log.Error("backend still down - retrying but timeout approaching",
			logger.Int("attempt", attempt),
			logger.Duration("remaining", remaining),
			logger.Duration("next_retry_in", nextRetry),
			logger.Error(err))
	case attempt <= warnThreshold:
		log.Warn("connection failed, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", nextRetry),
			logger.Error(err))
	default:
		log.Error("backend still unavailable - connection attempts failing",
			logger.Int("attempt", attempt),
			logger.Duration("next_retry_in", nextRetry),
			logger.Error(err))
	}
}

// timeLeft returns the remaining time before context deadline.
func timeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}
