// Package worker runs scheduled background jobs.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Pinger checks database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Heartbeat periodically checks the database and logs runtime counts.
type Heartbeat struct {
	db      Pinger
	counts  map[string]func() int
	logger  *slog.Logger
	timeout time.Duration

	failures atomic.Int64
}

// NewHeartbeat creates a heartbeat job. counts are logged on every run.
func NewHeartbeat(db Pinger, counts map[string]func() int, logger *slog.Logger) *Heartbeat {
	if logger == nil {
		logger = slog.Default()
	}
	return &Heartbeat{db: db, counts: counts, logger: logger, timeout: 5 * time.Second}
}

// Run performs one heartbeat.
func (h *Heartbeat) Run(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	attrs := make([]any, 0, 2*len(h.counts)+2)
	for name, fn := range h.counts {
		attrs = append(attrs, name, fn())
	}

	if err := h.db.Ping(pingCtx); err != nil {
		n := h.failures.Add(1)
		h.logger.Error("Heartbeat: database unreachable",
			append(attrs, "consecutive_failures", n, "error", err)...)
		return
	}
	if prev := h.failures.Swap(0); prev > 0 {
		h.logger.Info("Heartbeat: database reachable again", "after_failures", prev)
	}
	h.logger.Info("Heartbeat", attrs...)
}

// Failures returns the number of consecutive failed pings.
func (h *Heartbeat) Failures() int64 {
	return h.failures.Load()
}

// Start schedules Run on schedule (standard cron syntax or descriptors such
// as "@every 5m") until ctx is cancelled.
func (h *Heartbeat) Start(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() { h.Run(ctx) }); err != nil {
		return fmt.Errorf("schedule heartbeat %q: %w", schedule, err)
	}
	c.Start()
	h.logger.Info("Heartbeat worker started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		h.logger.Info("Heartbeat worker shutting down", "reason", ctx.Err())
	}()
	return nil
}
