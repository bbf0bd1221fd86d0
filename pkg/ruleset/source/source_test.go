package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"odd-hq/decisioning/pkg/edge"
)

type recordingLoader struct {
	mu   sync.Mutex
	docs []map[string]any
	err  error
}

func (l *recordingLoader) LoadDocument(doc map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.docs = append(l.docs, doc)
	return nil
}

func (l *recordingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.docs)
}

type refreshes struct {
	mu       sync.Mutex
	outcomes []error
}

func (r *refreshes) RecordRulesRefresh(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, err)
}

func TestRulesURL(t *testing.T) {
	tests := []struct {
		name string
		opts URLOptions
		want string
	}{
		{
			name: "property token",
			opts: URLOptions{OrgID: "org@AdobeOrg", PropertyToken: "tok", DatastreamID: "ds"},
			want: "https://assets.adobetarget.com/aep-odd-rules/org@AdobeOrg/production/v1/tok/rules.json",
		},
		{
			name: "datastream fallback",
			opts: URLOptions{OrgID: "org", DatastreamID: "ds"},
			want: "https://assets.adobetarget.com/aep-odd-rules/org/production/v1/ds/rules.json",
		},
		{
			name: "custom domain and base path",
			opts: URLOptions{OrgID: "org", PropertyToken: "tok", RuleDomain: "rules.example.com", RuleBasePath: "x/y"},
			want: "https://rules.example.com/x/y/org/production/v1/tok/rules.json",
		},
		{
			name: "empty segments dropped",
			opts: URLOptions{PropertyToken: "tok"},
			want: "https://assets.adobetarget.com/aep-odd-rules/production/v1/tok/rules.json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RulesURL(tt.opts); got != tt.want {
				t.Errorf("RulesURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPSource_Load(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotURL string
		src := NewHTTPSource(URLOptions{OrgID: "org", PropertyToken: "tok"},
			edge.FetcherFunc(func(_ context.Context, url string, _ *edge.RequestOptions) (map[string]any, error) {
				gotURL = url
				return map[string]any{"version": float64(1)}, nil
			}))

		doc, err := src.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if doc["version"] != float64(1) {
			t.Errorf("Load() = %v", doc)
		}
		if gotURL != src.URL() {
			t.Errorf("fetched %q, want %q", gotURL, src.URL())
		}
	})

	t.Run("fetch failure", func(t *testing.T) {
		cause := errors.New("connection refused")
		src := NewHTTPSource(URLOptions{OrgID: "org", PropertyToken: "tok"},
			edge.FetcherFunc(func(context.Context, string, *edge.RequestOptions) (map[string]any, error) {
				return nil, cause
			}))

		_, err := src.Load(context.Background())
		if !errors.Is(err, ErrFetchRules) || !errors.Is(err, cause) {
			t.Errorf("Load() error = %v, want %v wrapping %v", err, ErrFetchRules, cause)
		}
	})
}

func TestFileSource_Load(t *testing.T) {
	doc, err := NewFileSource(filepath.Join("..", "testdata", "target-rules.json")).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, ok := doc["rules"]; !ok {
		t.Errorf("Load() = %v, want a rules key", doc)
	}

	if _, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want %v", err, os.ErrNotExist)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("[]"), 0o600)
	if _, err := NewFileSource(bad).Load(context.Background()); !errors.Is(err, edge.ErrInvalidResponse) {
		t.Errorf("Load() error = %v, want %v", err, edge.ErrInvalidResponse)
	}
}

func TestReload(t *testing.T) {
	tests := []struct {
		name    string
		source  *MemorySource
		loadErr error
		wantErr error
	}{
		{name: "loads document", source: NewMemorySource(map[string]any{"rules": []any{}})},
		{name: "empty document", source: NewMemorySource(nil), wantErr: ErrEmptyRules},
		{name: "loader error", source: NewMemorySource(map[string]any{}), loadErr: errors.New("bad rules")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &recordingLoader{err: tt.loadErr}
			err := Reload(context.Background(), tt.source, loader)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Reload() error = %v, want %v", err, tt.wantErr)
				}
			case tt.loadErr != nil:
				if !errors.Is(err, tt.loadErr) {
					t.Errorf("Reload() error = %v, want %v", err, tt.loadErr)
				}
			default:
				if err != nil || loader.count() != 1 {
					t.Errorf("Reload() error = %v, loads = %d", err, loader.count())
				}
			}
		})
	}
}

func TestPoller_Reload(t *testing.T) {
	src := NewMemorySource(map[string]any{"rules": []any{}})
	loader := &recordingLoader{}
	rec := &refreshes{}
	p := NewPoller(src, loader, time.Minute, nil, WithRefreshRecorder(rec))

	if err := p.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	src.SetError(errors.New("unavailable"))
	if err := p.Reload(context.Background()); err == nil {
		t.Fatal("Reload() error = nil, want error")
	}

	if loader.count() != 1 {
		t.Errorf("loads = %d, want 1", loader.count())
	}
	if len(rec.outcomes) != 2 || rec.outcomes[0] != nil || rec.outcomes[1] == nil {
		t.Errorf("recorded outcomes = %v", rec.outcomes)
	}
}

func TestPoller_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPoller(NewMemorySource(nil), &recordingLoader{}, time.Hour, nil)
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start() error = nil, want error")
	}
	if next := p.NextRun(); next.IsZero() || next.Before(time.Now()) {
		t.Errorf("NextRun() = %v, want a future time", next)
	}

	p.Stop()
	if p.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if !p.NextRun().IsZero() {
		t.Error("NextRun() is set after Stop")
	}
}

func TestPoller_Disabled(t *testing.T) {
	p := NewPoller(NewMemorySource(nil), &recordingLoader{}, 0, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("IsRunning() = true with polling disabled")
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"rules":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := &recordingLoader{}
	w, err := NewWatcher(NewFileSource(path), loader, 20*time.Millisecond, nil, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan error, 16)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(err error) { reloaded <- err }) }()

	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-reloaded:
			if err != nil {
				t.Fatalf("reload error = %v", err)
			}
			if loader.count() == 0 {
				t.Fatal("loader was not called")
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Run() error = %v", err)
			}
			return
		case <-tick.C:
			os.WriteFile(path, []byte(`{"version":2,"rules":[]}`), 0o600)
		case <-deadline:
			t.Fatal("no reload within 5s")
		}
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	calls := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		d.Trigger(func() { calls <- i })
	}

	select {
	case got := <-calls:
		if got != 3 {
			t.Errorf("callback = %d, want last trigger 3", got)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced callback did not run")
	}

	d.Stop()
	d.Trigger(func() { calls <- 4 })
	select {
	case got := <-calls:
		t.Errorf("callback %d ran after Stop", got)
	case <-time.After(60 * time.Millisecond):
	}
}
