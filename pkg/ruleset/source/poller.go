package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Poller reloads a source on a fixed interval. A failed reload is logged
// and the previously loaded rules stay active.
type Poller struct {
	source   Source
	loader   Loader
	interval time.Duration
	recorder RefreshRecorder
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithRefreshRecorder records every reload outcome.
func WithRefreshRecorder(r RefreshRecorder) PollerOption {
	return func(p *Poller) {
		p.recorder = r
	}
}

// NewPoller creates a poller. It does nothing until Start is called.
func NewPoller(src Source, loader Loader, interval time.Duration, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		source:   src,
		loader:   loader,
		interval: interval,
		logger:   logger.With("component", "rules.poller"),
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reload loads the source once and records the outcome.
func (p *Poller) Reload(ctx context.Context) error {
	start := time.Now()
	err := Reload(ctx, p.source, p.loader)
	if p.recorder != nil {
		p.recorder.RecordRulesRefresh(p.source.Name(), err)
	}
	if err != nil {
		p.logger.Error("rules refresh failed",
			"source", p.source.Name(),
			"error", err,
		)
		return err
	}
	p.logger.Debug("rules refreshed",
		"source", p.source.Name(),
		"duration", time.Since(start),
	)
	return nil
}

// Start schedules a reload every interval. A non-positive interval
// disables polling. The poller stops when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interval <= 0 {
		p.logger.Debug("rules polling disabled")
		return nil
	}
	if p.running {
		return fmt.Errorf("poller already running")
	}

	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, func() {
		_ = p.Reload(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule rules refresh: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("rules polling started",
		"source", p.source.Name(),
		"interval", p.interval,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop stops polling and waits for a running reload to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	<-p.cron.Stop().Done()
	p.running = false
	p.logger.Info("rules polling stopped")
}

// IsRunning reports whether polling is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// NextRun returns the next scheduled reload, or the zero time when polling
// is not active.
func (p *Poller) NextRun() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := p.cron.Entries()
	if !p.running || len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
