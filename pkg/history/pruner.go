package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes history older than the retention period on a cron
// schedule.
type Pruner struct {
	store     Store
	retention time.Duration
	schedule  string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPruner creates a pruner. schedule is a standard five-field cron
// expression such as "0 3 * * *".
func NewPruner(store Store, retention time.Duration, schedule string, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:     store,
		retention: retention,
		schedule:  schedule,
		logger:    logger.With("component", "history.pruner"),
		now:       time.Now,
		cron:      cron.New(),
	}
}

// Prune deletes entries last seen more than the retention period ago. A
// zero retention keeps everything.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := p.now().Add(-p.retention)
	deleted, err := p.store.Prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return deleted, nil
}

// Start schedules pruning. It does nothing when retention or schedule is
// unset. The pruner stops when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.retention <= 0 || p.schedule == "" {
		p.logger.Info("history retention not configured, skipping pruner")
		return nil
	}
	if p.running {
		return fmt.Errorf("pruner already running")
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.schedule, err)
	}
	if _, err := p.cron.AddFunc(p.schedule, func() { p.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("history pruner started",
		"schedule", p.schedule,
		"retention", p.retention,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

func (p *Pruner) run(ctx context.Context) {
	deleted, err := p.Prune(ctx)
	if err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	p.logger.Debug("scheduled pruning completed", "deleted_count", deleted)
}

// Stop stops the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	<-p.cron.Stop().Done()
	p.running = false
	p.logger.Info("history pruner stopped")
}

// IsRunning reports whether pruning is scheduled.
func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
