// Package worker runs background jobs next to the HTTP server.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ExpiredBookingCleaner cancels stale pending bookings.
type ExpiredBookingCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// Cleanup periodically cancels pending bookings that outlived their expiry.
type Cleanup struct {
	svc      ExpiredBookingCleaner
	interval time.Duration
	timeout  time.Duration // per run
	log      *zap.Logger
}

func NewCleanup(svc ExpiredBookingCleaner, interval time.Duration, log *zap.Logger) *Cleanup {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := 30 * time.Second
	if interval < timeout {
		timeout = interval
	}
	return &Cleanup{svc: svc, interval: interval, timeout: timeout, log: log}
}

// Run sweeps once immediately and then every interval until ctx is done.
// Failed sweeps are logged and retried on the next tick. It returns nil on
// cancellation so it can run inside an errgroup.
func (c *Cleanup) Run(ctx context.Context) error {
	if c.interval <= 0 {
		return errors.New("cleanup interval must be positive")
	}
	c.log.Info("booking cleanup started", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			c.log.Info("booking cleanup stopped")
			return nil
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleanup) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	n, err := c.svc.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return
		}
		c.log.Error("booking cleanup failed", zap.Error(err))
		return
	}
	if n > 0 {
		c.log.Info("booking cleanup swept", zap.Int("cancelled", n), zap.Duration("took", time.Since(start)))
	}
}
