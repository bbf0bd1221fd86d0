package decisioning

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"odd-hq/decisioning/pkg/decisioning/engine"
	"odd-hq/decisioning/pkg/edge"
	"odd-hq/decisioning/pkg/history"
	"odd-hq/decisioning/pkg/identity"
	"odd-hq/decisioning/pkg/ruleset/source"
	"odd-hq/decisioning/pkg/telemetry/logging"
)

func targetRules(t *testing.T) map[string]any {
	t.Helper()
	data, err := os.ReadFile("../ruleset/testdata/target-rules.json")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}
	doc, err := edge.DecodeObject(data)
	if err != nil {
		t.Fatalf("DecodeObject() error = %v", err)
	}
	return doc
}

// fakeEdge records requests and answers interact calls with a canned body.
type fakeEdge struct {
	mu       sync.Mutex
	urls     []string
	bodies   []map[string]any
	interact map[string]any
	rules    map[string]any
	err      error
}

func (f *fakeEdge) Fetch(_ context.Context, url string, opts *edge.RequestOptions) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	if opts != nil && opts.Body != nil {
		var body map[string]any
		json.Unmarshal(opts.Body, &body)
		f.bodies = append(f.bodies, body)
	}
	switch {
	case strings.HasSuffix(url, "rules.json"):
		return f.rules, nil
	case strings.Contains(url, "/interact?"):
		return f.interact, nil
	}
	return nil, nil
}

func (f *fakeEdge) requests(endpoint string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	bodyIdx := 0
	for _, u := range f.urls {
		if strings.HasSuffix(u, "rules.json") {
			continue
		}
		if strings.Contains(u, "/"+endpoint+"?") {
			out = append(out, f.bodies[bodyIdx])
		}
		bodyIdx++
	}
	return out
}

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	c, err := NewClient(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func pageEvent(identityMap map[string]any) map[string]any {
	xdm := map[string]any{
		"web": map[string]any{"webPageDetails": map[string]any{"URL": "https://luma.com/men"}},
	}
	if identityMap != nil {
		xdm["identityMap"] = identityMap
	}
	return map[string]any{"type": "decisioning.propositionFetch", "xdm": xdm}
}

func ecidMap(id any) map[string]any {
	return map[string]any{"ECID": []any{map[string]any{"id": id}}}
}

func TestNewClient_Rules(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{name: "supplied rules", opts: Options{ODDEnabled: true, Rules: targetRules(t)}},
		{name: "no rules and no source", opts: Options{ODDEnabled: true}, wantErr: ErrRulesEmpty},
		{name: "empty source", opts: Options{ODDEnabled: true, RulesSource: source.NewMemorySource(nil)}, wantErr: ErrRulesEmpty},
		{
			name:    "fetch failure",
			opts:    Options{ODDEnabled: true, OrgID: "org", PropertyToken: "tok", Fetcher: &fakeEdge{err: errors.New("offline")}},
			wantErr: source.ErrFetchRules,
		},
		{name: "edge mode without datastream", opts: Options{}, wantErr: ErrEdgeNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Logger = logging.Discard()
			c, err := NewClient(context.Background(), tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewClient() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			c.Close()
		})
	}
}

func TestNewClient_FetchesRulesArtifact(t *testing.T) {
	fake := &fakeEdge{rules: targetRules(t)}
	c := newTestClient(t, Options{ODDEnabled: true, OrgID: "org@AdobeOrg", PropertyToken: "tok", Fetcher: fake})

	want := "https://assets.adobetarget.com/aep-odd-rules/org@AdobeOrg/production/v1/tok/rules.json"
	if len(fake.urls) != 1 || fake.urls[0] != want {
		t.Errorf("fetched %v, want [%s]", fake.urls, want)
	}
	if c.Engine().Provider() != "TGT" {
		t.Errorf("Provider() = %q, want TGT", c.Engine().Provider())
	}
}

func TestSendEvent_TargetAllocation(t *testing.T) {
	c := newTestClient(t, Options{ODDEnabled: true, Rules: targetRules(t)})

	tests := []struct {
		name             string
		ecid             string
		wantDecisions    []string
		wantContentItems int
	}{
		// ECID "1" allocates activity2 to 0, ECID "4" to 50.
		{name: "allocation 0", ecid: "1", wantDecisions: []string{"proposition-0", "proposition-1"}, wantContentItems: 0},
		{name: "allocation 50", ecid: "4", wantDecisions: []string{"proposition-0", "proposition-1"}, wantContentItems: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.SendEvent(context.Background(), pageEvent(ecidMap(tt.ecid)))
			if err != nil {
				t.Fatalf("SendEvent() error = %v", err)
			}
			decisions := resp.Decisions()
			if len(decisions) != len(tt.wantDecisions) {
				t.Fatalf("Decisions() = %v, want ids %v", decisions, tt.wantDecisions)
			}
			for i, d := range decisions {
				if d["id"] != tt.wantDecisions[i] {
					t.Errorf("Decisions()[%d].id = %v, want %s", i, d["id"], tt.wantDecisions[i])
				}
			}
			items := resp.ContentItems()
			if len(items) != tt.wantContentItems {
				t.Fatalf("ContentItems() = %v, want %d items", items, tt.wantContentItems)
			}
			if len(items) == 1 && items[0].Selector != "#hero h1" {
				t.Errorf("ContentItems()[0].Selector = %q, want #hero h1", items[0].Selector)
			}
		})
	}
}

func TestSendEvent_Envelope(t *testing.T) {
	c := newTestClient(t, Options{ODDEnabled: true, Rules: targetRules(t)})

	event := pageEvent(map[string]any{
		"FPID": []any{map[string]any{"id": "fp-1", "primary": false}},
		"ECID": []any{map[string]any{"id": "e-1", "authenticatedState": "ambiguous", "primary": true}},
	})
	resp, err := c.SendEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}

	if resp.RequestID == "" {
		t.Error("RequestID is empty")
	}
	if len(resp.Handle) != 2 {
		t.Fatalf("len(Handle) = %d, want 2", len(resp.Handle))
	}

	ids := resp.Handle[0]
	if ids.Type != HandleIdentityResult || ids.EventIndex != nil {
		t.Errorf("Handle[0] = %+v, want an identity:result without eventIndex", ids)
	}
	if len(ids.Payload) != 2 {
		t.Fatalf("identity payload = %v, want 2 entries", ids.Payload)
	}
	ecid := ids.Payload[0].(map[string]any)
	if ecid["id"] != "e-1" || ecid["authenticatedState"] != "ambiguous" || ecid["primary"] != true {
		t.Errorf("identity payload[0] = %v", ecid)
	}
	if code := ecid["namespace"].(map[string]any)["code"]; code != "ECID" {
		t.Errorf("namespace = %v, want ECID", code)
	}
	fpid := ids.Payload[1].(map[string]any)
	if _, ok := fpid["primary"]; ok {
		t.Errorf("identity payload[1] = %v, falsy primary must be omitted", fpid)
	}

	decisions := resp.Handle[1]
	if decisions.Type != HandleDecisions || decisions.EventIndex == nil || *decisions.EventIndex != 0 {
		t.Errorf("Handle[1] = %+v, want personalization:decisions at eventIndex 0", decisions)
	}
	if resp.ECID() != "e-1" {
		t.Errorf("ECID() = %q, want e-1", resp.ECID())
	}

	// The caller's event is not modified.
	if _, ok := event["events"]; ok {
		t.Error("SendEvent() modified the event")
	}
}

func TestSendEvent_IdentityResolution(t *testing.T) {
	gen := identity.NewGenerator()
	c := newTestClient(t, Options{ODDEnabled: true, OrgID: "org", Rules: targetRules(t), IDs: gen})

	wantFromFPID, err := gen.FromExternalID("org", "fp-1")
	if err != nil {
		t.Fatalf("FromExternalID() error = %v", err)
	}

	tests := []struct {
		name  string
		event map[string]any
		check func(t *testing.T, ecid string)
	}{
		{
			name:  "request ecid reused",
			event: pageEvent(ecidMap("e-1")),
			check: func(t *testing.T, ecid string) {
				if ecid != "e-1" {
					t.Errorf("ECID() = %q, want e-1", ecid)
				}
			},
		},
		{
			name:  "derived from fpid",
			event: pageEvent(map[string]any{"FPID": []any{map[string]any{"id": "fp-1"}}}),
			check: func(t *testing.T, ecid string) {
				if ecid != wantFromFPID {
					t.Errorf("ECID() = %q, want %q", ecid, wantFromFPID)
				}
			},
		},
		{
			name:  "empty ecid array falls through",
			event: pageEvent(map[string]any{"ECID": []any{}, "FPID": []any{map[string]any{"id": "fp-1"}}}),
			check: func(t *testing.T, ecid string) {
				if ecid != wantFromFPID {
					t.Errorf("ECID() = %q, want %q", ecid, wantFromFPID)
				}
			},
		},
		{
			name:  "random",
			event: pageEvent(nil),
			check: func(t *testing.T, ecid string) {
				if ecid == "" || strings.Trim(ecid, "0123456789") != "" {
					t.Errorf("ECID() = %q, want a decimal id", ecid)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.SendEvent(context.Background(), tt.event)
			if err != nil {
				t.Fatalf("SendEvent() error = %v", err)
			}
			tt.check(t, resp.ECID())
		})
	}
}

func TestSendEvent_EngineFailureIsContained(t *testing.T) {
	c := newTestClient(t, Options{ODDEnabled: true, Rules: targetRules(t)})

	// An ECID identity without an id reaches the bucketed executor, which
	// cannot derive an allocation and fails.
	event := pageEvent(map[string]any{"ECID": []any{map[string]any{"primary": true}}})
	resp, err := c.SendEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}
	if len(resp.Handle) != 2 {
		t.Fatalf("len(Handle) = %d, want 2", len(resp.Handle))
	}
	if resp.Handle[1].Payload == nil || len(resp.Handle[1].Payload) != 0 {
		t.Errorf("decisions payload = %#v, want empty array", resp.Handle[1].Payload)
	}

	raw, _ := json.Marshal(resp)
	if !strings.Contains(string(raw), `"payload":[]`) {
		t.Errorf("encoded response %s has no empty decisions payload", raw)
	}
}

func TestSendEvent_DisplayNotification(t *testing.T) {
	fake := &fakeEdge{}
	c := newTestClient(t, Options{ODDEnabled: true, DatastreamID: "ds", Rules: targetRules(t), Fetcher: fake})

	event := pageEvent(ecidMap("1"))
	event["personalization"] = map[string]any{"sendDisplayEvent": true}
	if _, err := c.SendEvent(context.Background(), event); err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}
	c.Close()

	collects := fake.requests(edge.EndpointCollect)
	if len(collects) != 1 {
		t.Fatalf("collect requests = %d, want 1", len(collects))
	}
	events := collects[0]["events"].([]any)
	xdm := events[0].(map[string]any)["xdm"].(map[string]any)
	if xdm["eventType"] != EventTypeDisplay {
		t.Errorf("eventType = %v, want %s", xdm["eventType"], EventTypeDisplay)
	}
	if _, ok := xdm["web"]; !ok {
		t.Error("display event does not carry the request xdm")
	}
	props := xdm["_experience"].(map[string]any)["decisioning"].(map[string]any)["propositions"].([]any)
	if len(props) != 2 {
		t.Fatalf("propositions = %v, want 2", props)
	}
	first := props[0].(map[string]any)
	if first["id"] != "proposition-0" {
		t.Errorf("propositions[0] = %v", first)
	}
	if _, ok := first["items"]; ok {
		t.Error("proposition was not trimmed")
	}
}

func TestSendEvent_NoDisplayNotificationByDefault(t *testing.T) {
	fake := &fakeEdge{}
	c := newTestClient(t, Options{ODDEnabled: true, DatastreamID: "ds", Rules: targetRules(t), Fetcher: fake})

	if _, err := c.SendEvent(context.Background(), pageEvent(ecidMap("1"))); err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}
	c.Close()
	if n := len(fake.requests(edge.EndpointCollect)); n != 0 {
		t.Errorf("collect requests = %d, want 0", n)
	}
}

func TestSendEvent_EdgeMode(t *testing.T) {
	fake := &fakeEdge{interact: map[string]any{
		"requestId": "edge-request",
		"handle": []any{
			map[string]any{"type": "identity:result", "payload": []any{
				map[string]any{"id": "e-9", "namespace": map[string]any{"code": "ECID"}},
			}},
			map[string]any{"eventIndex": float64(0), "type": "personalization:decisions", "payload": []any{
				map[string]any{"id": "remote", "scope": "__view__"},
			}},
		},
	}}
	c := newTestClient(t, Options{DatastreamID: "ds", Fetcher: fake})

	resp, err := c.SendEvent(context.Background(), pageEvent(nil))
	if err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}
	if resp.RequestID != "edge-request" || resp.ECID() != "e-9" {
		t.Errorf("response = %+v", resp)
	}
	if d := resp.Decisions(); len(d) != 1 || d[0]["id"] != "remote" {
		t.Errorf("Decisions() = %v", d)
	}
	interacts := fake.requests(edge.EndpointInteract)
	if len(interacts) != 1 {
		t.Fatalf("interact requests = %d, want 1", len(interacts))
	}
	if _, ok := interacts[0]["event"]; !ok {
		t.Errorf("interact body = %v, want an event key", interacts[0])
	}
	if c.Engine() != nil {
		t.Error("Engine() is set in edge mode")
	}
}

func TestSendEvent_History(t *testing.T) {
	rules := map[string]any{
		"version": float64(1),
		"rules": []any{
			map[string]any{
				"condition": map[string]any{
					"type": "historical",
					"definition": map[string]any{
						"events":     []any{map[string]any{"iam.eventType": "display", "iam.id": "proposition-0"}},
						"matcher":    "ge",
						"value":      float64(1),
						"searchType": "any",
					},
				},
				"consequences": []any{
					map[string]any{"id": "returning", "type": "proposition", "detail": map[string]any{"id": "welcome-back"}},
				},
			},
			map[string]any{
				"condition": map[string]any{
					"type":       "matcher",
					"definition": map[string]any{"key": "xdm.web.webPageDetails.URL", "matcher": "ex", "values": []any{}},
				},
				"consequences": []any{
					map[string]any{"id": "first", "type": "proposition", "detail": map[string]any{"id": "proposition-0", "scope": "__view__"}},
				},
			},
		},
	}

	store := history.NewMemoryStore()
	c := newTestClient(t, Options{ODDEnabled: true, Rules: rules, History: store})

	event := pageEvent(ecidMap("visitor"))
	event["personalization"] = map[string]any{"sendDisplayEvent": true}

	first, err := c.SendEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}
	if d := first.Decisions(); len(d) != 1 || d[0]["id"] != "proposition-0" {
		t.Fatalf("first Decisions() = %v, want [proposition-0]", d)
	}

	second, err := c.SendEvent(context.Background(), event)
	if err != nil {
		t.Fatalf("SendEvent() error = %v", err)
	}
	d := second.Decisions()
	if len(d) != 2 || d[0]["id"] != "welcome-back" {
		t.Errorf("second Decisions() = %v, want welcome-back first", d)
	}
}

func TestSendNotification(t *testing.T) {
	fake := &fakeEdge{}
	c := newTestClient(t, Options{DatastreamID: "ds", Fetcher: fake})

	if _, err := c.SendNotification(context.Background(), map[string]any{"xdm": map[string]any{}}); err != nil {
		t.Fatalf("SendNotification() error = %v", err)
	}
	if n := len(fake.requests(edge.EndpointCollect)); n != 1 {
		t.Errorf("collect requests = %d, want 1", n)
	}

	odd := newTestClient(t, Options{ODDEnabled: true, Rules: targetRules(t)})
	if _, err := odd.SendNotification(context.Background(), nil); !errors.Is(err, ErrEdgeNotConfigured) {
		t.Errorf("SendNotification() error = %v, want %v", err, ErrEdgeNotConfigured)
	}
}

func TestClient_Closed(t *testing.T) {
	c := newTestClient(t, Options{ODDEnabled: true, Rules: targetRules(t)})
	c.Close()
	if _, err := c.SendEvent(context.Background(), pageEvent(nil)); !errors.Is(err, ErrClientClosed) {
		t.Errorf("SendEvent() error = %v, want %v", err, ErrClientClosed)
	}
}

func TestClient_CloseDuringDisplayNotifications(t *testing.T) {
	fake := &fakeEdge{}
	c := newTestClient(t, Options{ODDEnabled: true, DatastreamID: "ds", Rules: targetRules(t), Fetcher: fake})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			event := pageEvent(ecidMap("1"))
			event["personalization"] = map[string]any{"sendDisplayEvent": true}
			_, err := c.SendEvent(context.Background(), event)
			if err != nil && !errors.Is(err, ErrClientClosed) {
				t.Errorf("SendEvent() error = %v", err)
			}
		}()
	}
	c.Close()
	wg.Wait()

	// Notifications accepted before Close finished are all sent by then.
	sent := len(fake.requests(edge.EndpointCollect))
	c.Close()
	if got := len(fake.requests(edge.EndpointCollect)); got != sent {
		t.Errorf("collect requests after Close = %d, want %d", got, sent)
	}
}

func TestClient_Reload(t *testing.T) {
	src := source.NewMemorySource(targetRules(t))
	c := newTestClient(t, Options{ODDEnabled: true, RulesSource: src})

	src.Set(map[string]any{"version": float64(2), "rules": []any{}})
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if c.Engine().Provider() != engine.ProviderDefault {
		t.Errorf("Provider() = %q after reload, want %s", c.Engine().Provider(), engine.ProviderDefault)
	}
}
