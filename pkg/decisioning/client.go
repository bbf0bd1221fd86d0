package decisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"odd-hq/decisioning/internal/jsonutil"
	"odd-hq/decisioning/pkg/decisioning/engine"
	"odd-hq/decisioning/pkg/edge"
	"odd-hq/decisioning/pkg/history"
	"odd-hq/decisioning/pkg/identity"
	"odd-hq/decisioning/pkg/ruleset"
	"odd-hq/decisioning/pkg/ruleset/source"
	"odd-hq/decisioning/pkg/telemetry/logging"
	"odd-hq/decisioning/pkg/telemetry/tracing"
)

// Event modes reported to the Recorder.
const (
	ModeODD  = "odd"
	ModeEdge = "edge"
)

// Event outcomes reported to the Recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeEngineError = "engine_error"
	OutcomeError       = "error"
)

// notificationTimeout bounds display notifications sent in the background.
const notificationTimeout = 10 * time.Second

// Client evaluates events on device or forwards them to the edge network.
type Client struct {
	opts      Options
	logger    *slog.Logger
	ids       *identity.Generator
	engine    *engine.Engine
	source    source.Source
	requester *edge.Requester
	history   history.Store
	metrics   Recorder
	tracer    trace.Tracer
	poller    *source.Poller
	now       func() time.Time

	cancel  context.CancelFunc
	pending sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewClient creates a client. With on-device decisioning enabled it loads
// the rules from opts.Rules, opts.RulesSource or the published rules
// artifact, in that order, and starts polling when an interval is set.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	opts.applyDefaults()

	c := &Client{
		opts:    opts,
		logger:  opts.Logger.With("component", "decisioning.client"),
		ids:     opts.IDs,
		history: opts.History,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
		now:     time.Now,
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("")
	}
	if c.history != nil && opts.Metrics != nil {
		c.history = history.Instrument(c.history, opts.Metrics)
	}

	if opts.DatastreamID != "" {
		requester, err := edge.NewRequester(edge.RequesterOptions{
			DatastreamID: opts.DatastreamID,
			EdgeDomain:   opts.EdgeDomain,
			EdgeBasePath: opts.EdgeBasePath,
		}, opts.Fetcher, opts.IDs)
		if err != nil {
			return nil, err
		}
		c.requester = requester
	}

	if !opts.ODDEnabled {
		if c.requester == nil {
			return nil, ErrEdgeNotConfigured
		}
		c.logger.Info("decisioning client created", "mode", ModeEdge)
		return c, nil
	}

	if err := c.initEngine(ctx); err != nil {
		return nil, err
	}

	bg, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	if err := c.startRefresh(bg); err != nil {
		cancel()
		return nil, err
	}

	c.logger.Info("decisioning client created",
		"mode", ModeODD,
		"provider", c.engine.Provider(),
		"rule_count", len(c.engine.Ruleset().Rules),
	)
	return c, nil
}

func (c *Client) initEngine(ctx context.Context) error {
	engineOpts := []engine.Option{
		engine.WithTracer(c.opts.Tracer),
		engine.WithAllocator(c.opts.Allocator),
	}
	if c.metrics != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(c.metrics))
	}
	eng, err := engine.New(c.opts.EngineConfig, c.opts.Logger, engineOpts...)
	if err != nil {
		return err
	}
	c.engine = eng

	c.source = c.opts.RulesSource
	if c.source == nil && c.opts.OrgID != "" {
		c.source = source.NewHTTPSource(c.opts.urlOptions(), c.opts.Fetcher)
	}

	doc := c.opts.Rules
	if doc == nil {
		if c.source == nil {
			return ErrRulesEmpty
		}
		if doc, err = c.source.Load(ctx); err != nil {
			return err
		}
		if doc == nil {
			return ErrRulesEmpty
		}
	}
	return eng.LoadDocument(doc)
}

func (c *Client) startRefresh(ctx context.Context) error {
	if c.source == nil {
		if c.opts.RulesPollingInterval > 0 || c.opts.WatchRules {
			c.logger.Warn("rules refresh requested without a rules source")
		}
		return nil
	}

	var recorder source.RefreshRecorder
	if c.metrics != nil {
		recorder = c.metrics
	}

	if c.opts.RulesPollingInterval > 0 {
		var pollerOpts []source.PollerOption
		if recorder != nil {
			pollerOpts = append(pollerOpts, source.WithRefreshRecorder(recorder))
		}
		c.poller = source.NewPoller(c.source, c.engine, c.opts.RulesPollingInterval, c.opts.Logger, pollerOpts...)
		if err := c.poller.Start(ctx); err != nil {
			return err
		}
	}

	if c.opts.WatchRules {
		file, ok := c.source.(*source.FileSource)
		if !ok {
			return fmt.Errorf("rules watch requires a file source, got %s", c.source.Name())
		}
		w, err := source.NewWatcher(file, c.engine, 0, c.opts.Logger, recorder)
		if err != nil {
			return err
		}
		c.pending.Add(1)
		go func() {
			defer c.pending.Done()
			if err := w.Run(ctx, nil); err != nil {
				c.logger.Error("rules watcher stopped", "error", err)
			}
		}()
	}
	return nil
}

// SendEvent returns the decisions for event. event is not modified.
func (c *Client) SendEvent(ctx context.Context, event map[string]any) (*Response, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	mode := ModeEdge
	if c.opts.ODDEnabled {
		mode = ModeODD
	}

	ctx, span := c.tracer.Start(ctx, "decisioning.send_event",
		trace.WithAttributes(attribute.String("decisioning.mode", mode)),
	)
	defer span.End()

	start := time.Now()
	var (
		resp    *Response
		outcome string
		err     error
	)
	if c.opts.ODDEnabled {
		resp, outcome, err = c.decide(ctx, event)
	} else {
		resp, err = c.interact(ctx, event)
		outcome = OutcomeSuccess
	}
	if err != nil {
		outcome = OutcomeError
	}
	if c.metrics != nil {
		c.metrics.RecordEvent(mode, outcome, time.Since(start))
	}
	tracing.SetStatus(span, err)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("decisioning.request_id", resp.RequestID),
		attribute.Int("decisioning.decision_count", len(resp.Decisions())),
	)

	if wantsDisplayEvent(event) {
		c.dispatchDisplay(ctx, event, resp)
	}
	return resp, nil
}

// decide evaluates event against the loaded rules.
func (c *Client) decide(ctx context.Context, request map[string]any) (*Response, string, error) {
	if request == nil {
		request = map[string]any{}
	}
	ecids, err := resolveECID(request, c.opts.OrgID, c.ids)
	if err != nil {
		return nil, "", err
	}
	event := withECID(request, ecids)

	ecid := firstID(ecids)
	ctx = logging.WithECID(ctx, ecid)
	c.mergeHistory(ctx, event, ecid)

	outcome := OutcomeSuccess
	payload := []any{}
	results, err := c.engine.Execute(ctx, engine.BuildContext(event))
	if err != nil {
		c.logger.ErrorContext(ctx, "rules engine failed to execute", "error", err)
		outcome = OutcomeEngineError
	} else {
		payload = c.decisionsPayload(results)
	}

	requestID, err := c.ids.UUID()
	if err != nil {
		return nil, "", err
	}

	eventIndex := 0
	resp := &Response{
		RequestID: requestID,
		Handle: []Handle{
			identityResult(event),
			{EventIndex: &eventIndex, Type: HandleDecisions, Payload: payload},
		},
	}

	c.logger.DebugContext(logging.WithRequestID(ctx, requestID), "event decided",
		"decision_count", len(payload),
	)
	return resp, outcome, nil
}

func (c *Client) decisionsPayload(results [][]ruleset.Consequence) []any {
	payload := []any{}
	var ids []string
	for _, consequences := range results {
		for _, consequence := range consequences {
			payload = append(payload, consequence.Detail)
			ids = append(ids, consequence.ID)
		}
	}
	if c.metrics != nil && len(ids) > 0 {
		c.metrics.RecordMatches(ids...)
	}
	return payload
}

// mergeHistory adds the visitor's stored events under the "events" key.
// Entries sent with the request take precedence.
func (c *Client) mergeHistory(ctx context.Context, event map[string]any, ecid string) {
	if c.history == nil || ecid == "" {
		return
	}
	stored, err := c.history.Events(ctx, ecid)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to read event history", "error", err)
		return
	}
	if len(stored) == 0 {
		return
	}
	if supplied, ok := jsonutil.AsMap(event[engine.HistoryKey]); ok {
		for eventType, raw := range supplied {
			byID, ok := jsonutil.AsMap(raw)
			if !ok {
				stored[eventType] = raw
				continue
			}
			merged, ok := jsonutil.AsMap(stored[eventType])
			if !ok {
				stored[eventType] = byID
				continue
			}
			for id, v := range byID {
				merged[id] = v
			}
		}
	}
	event[engine.HistoryKey] = stored
}

func (c *Client) interact(ctx context.Context, event map[string]any) (*Response, error) {
	raw, err := c.requester.Interact(ctx, event)
	if err != nil {
		return nil, err
	}
	return responseFromMap(raw), nil
}

// dispatchDisplay records the displayed propositions and sends the display
// notification in the background. Failures are logged only.
func (c *Client) dispatchDisplay(ctx context.Context, request map[string]any, resp *Response) {
	now := c.now()
	c.recordDisplayed(ctx, resp, now)

	if c.requester == nil {
		c.logger.DebugContext(ctx, "display notification skipped, no datastream configured")
		return
	}

	if !c.track() {
		c.logger.DebugContext(ctx, "display notification skipped, client closed")
		return
	}
	display := DisplayEvent(request, resp, now)
	bg := context.WithoutCancel(ctx)
	go func() {
		defer c.pending.Done()
		sendCtx, cancel := context.WithTimeout(bg, notificationTimeout)
		defer cancel()
		if _, err := c.SendNotification(sendCtx, display); err != nil {
			c.logger.WarnContext(sendCtx, "failed to send display notification", "error", err)
		}
	}()
}

func (c *Client) recordDisplayed(ctx context.Context, resp *Response, now time.Time) {
	ecid := resp.ECID()
	if c.history == nil || ecid == "" {
		return
	}
	for _, p := range resp.Propositions() {
		id, ok := p.ID.(string)
		if !ok || id == "" {
			continue
		}
		err := c.history.Record(ctx, ecid, history.Event{
			Type: "display",
			ID:   id,
			Payload: map[string]any{
				"iam.eventType": "display",
				"iam.id":        id,
			},
			Timestamp: now,
		})
		if err != nil {
			c.logger.WarnContext(ctx, "failed to record display event", "error", err)
		}
	}
}

// SendNotification posts event to the edge collect endpoint.
func (c *Client) SendNotification(ctx context.Context, event map[string]any) (map[string]any, error) {
	if c.requester == nil {
		return nil, ErrEdgeNotConfigured
	}
	resp, err := c.requester.Collect(ctx, event)
	if c.metrics != nil {
		c.metrics.RecordNotification(err)
	}
	return resp, err
}

// RecordEvent adds an event to the visitor's history. It is a no-op without
// a history store.
func (c *Client) RecordEvent(ctx context.Context, ecid string, event history.Event) error {
	if c.history == nil {
		return nil
	}
	return c.history.Record(ctx, ecid, event)
}

// Reload reloads the rules from the client's source.
func (c *Client) Reload(ctx context.Context) error {
	if c.engine == nil || c.source == nil {
		return errors.New("client has no rules source")
	}
	if c.poller != nil {
		return c.poller.Reload(ctx)
	}
	err := source.Reload(ctx, c.source, c.engine)
	if c.metrics != nil {
		c.metrics.RecordRulesRefresh(c.source.Name(), err)
	}
	return err
}

// Engine returns the rules engine, or nil in edge mode.
func (c *Client) Engine() *engine.Engine {
	return c.engine
}

// ODDEnabled reports whether events are evaluated on device.
func (c *Client) ODDEnabled() bool {
	return c.opts.ODDEnabled
}

// Close stops rules refresh and waits for pending notifications.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if c.poller != nil {
		c.poller.Stop()
	}
	c.pending.Wait()
	return nil
}

// track registers a background task unless the client is closed. Close
// sets closed under the write lock before waiting, so a tracked task is
// always waited for.
func (c *Client) track() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	c.pending.Add(1)
	return true
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

func firstID(ecids []any) string {
	if len(ecids) == 0 {
		return ""
	}
	m, _ := jsonutil.AsMap(ecids[0])
	id, _ := m["id"].(string)
	return id
}
