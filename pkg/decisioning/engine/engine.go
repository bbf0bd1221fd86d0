package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"odd-hq/decisioning/pkg/ruleset"
)

// Recorder receives engine measurements. *metrics.DecisionMetrics
// implements it.
type Recorder interface {
	RecordEvaluation(provider string, duration time.Duration, consequences int)
	RecordEngineFailure(provider, reason string)
	RecordRulesLoad(provider string, rules int)
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithTracer sets the tracer used for evaluation spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithAllocator shares an allocator, and therefore its bucket memo, with
// the engine.
func WithAllocator(a *Allocator) Option {
	return func(e *Engine) {
		if a != nil {
			e.allocator = a
		}
	}
}

// snapshot is an immutable view of the loaded rules.
type snapshot struct {
	ruleset  *ruleset.Ruleset
	executor Executor
	loadedAt time.Time
}

// Engine evaluates the active ruleset. Load swaps the ruleset atomically;
// evaluations in flight keep the snapshot they started with.
type Engine struct {
	config    *EngineConfig
	logger    *slog.Logger
	evaluator *Evaluator
	allocator *Allocator
	recorder  Recorder
	tracer    trace.Tracer

	current atomic.Pointer[snapshot]
}

// New creates an engine with no rules loaded.
func New(config *EngineConfig, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config:    config,
		logger:    logger,
		evaluator: NewEvaluator(config.Matchers),
		allocator: NewAllocator(),
		tracer:    noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewFromRuleset creates an engine and loads rs.
func NewFromRuleset(rs *ruleset.Ruleset, config *EngineConfig, logger *slog.Logger, opts ...Option) (*Engine, error) {
	e, err := New(config, logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Load(rs); err != nil {
		return nil, err
	}
	return e, nil
}

// Load builds an executor for rs and makes it active. On error the
// previously loaded rules stay active.
func (e *Engine) Load(rs *ruleset.Ruleset) error {
	if rs == nil {
		return fmt.Errorf("%w, %w", ErrCreateEngine, ErrNoRulesLoaded)
	}
	executor, err := NewExecutor(rs, e.evaluator, e.allocator)
	if err != nil {
		if e.recorder != nil {
			e.recorder.RecordEngineFailure(rs.Provider(), "load")
		}
		return fmt.Errorf("%w, %w", ErrCreateEngine, err)
	}

	e.current.Store(&snapshot{ruleset: rs, executor: executor, loadedAt: time.Now()})
	if e.recorder != nil {
		e.recorder.RecordRulesLoad(executor.Provider(), len(rs.Rules))
	}
	e.logger.Info("rules loaded",
		"provider", executor.Provider(),
		"rule_count", len(rs.Rules),
	)
	return nil
}

// LoadDocument parses a decoded rules document and loads it.
func (e *Engine) LoadDocument(doc map[string]any) error {
	parser := ruleset.NewParser().
		WithMaxDepth(e.config.MaxConditionDepth).
		WithSchemaValidation(e.config.ValidateSchema)
	rs, err := parser.ParseDocument(doc)
	if err != nil {
		return fmt.Errorf("%w, %w", ErrCreateEngine, err)
	}
	return e.Load(rs)
}

// Execute evaluates the active ruleset against c.
func (e *Engine) Execute(ctx context.Context, c Context) ([][]ruleset.Consequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNoRulesLoaded
	}
	provider := snap.executor.Provider()

	_, span := e.tracer.Start(ctx, "decisioning.engine.execute",
		trace.WithAttributes(
			attribute.String("decisioning.provider", provider),
			attribute.Int("decisioning.rule_count", len(snap.ruleset.Rules)),
		),
	)
	defer span.End()

	start := time.Now()
	results, err := snap.executor.Execute(c)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if e.recorder != nil {
			e.recorder.RecordEngineFailure(provider, "execute")
		}
		return nil, err
	}

	matched := 0
	for _, r := range results {
		matched += len(r)
	}
	span.SetAttributes(attribute.Int("decisioning.consequence_count", matched))
	if e.recorder != nil {
		e.recorder.RecordEvaluation(provider, duration, matched)
	}
	e.logger.Debug("rules executed",
		"provider", provider,
		"matched_rules", len(results),
		"consequence_count", matched,
		"duration", duration,
	)
	return results, nil
}

// Provider returns the active executor's provider, or "" before Load.
func (e *Engine) Provider() string {
	snap := e.current.Load()
	if snap == nil {
		return ""
	}
	return snap.executor.Provider()
}

// Ruleset returns the active ruleset, or nil before Load.
func (e *Engine) Ruleset() *ruleset.Ruleset {
	snap := e.current.Load()
	if snap == nil {
		return nil
	}
	return snap.ruleset
}

// LoadedAt returns when the active ruleset was loaded.
func (e *Engine) LoadedAt() time.Time {
	snap := e.current.Load()
	if snap == nil {
		return time.Time{}
	}
	return snap.loadedAt
}

// Allocator returns the engine's allocator.
func (e *Engine) Allocator() *Allocator {
	return e.allocator
}
