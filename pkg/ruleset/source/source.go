package source

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFetchRules wraps every failure to download a rules artifact.
	ErrFetchRules = errors.New("failed to fetch rules")

	// ErrEmptyRules indicates a source that returned no document.
	ErrEmptyRules = errors.New("rules cannot be empty")
)

// Source loads a rules document.
type Source interface {
	// Load returns the decoded document. A nil map with a nil error means
	// the source has no rules.
	Load(ctx context.Context) (map[string]any, error)

	// Name identifies the source kind in logs and metrics.
	Name() string
}

// Loader accepts a freshly loaded document. *engine.Engine implements it.
type Loader interface {
	LoadDocument(doc map[string]any) error
}

// RefreshRecorder records the outcome of each reload.
// *metrics.Collector implements it.
type RefreshRecorder interface {
	RecordRulesRefresh(source string, err error)
}

// Reload loads src once and hands the document to loader.
func Reload(ctx context.Context, src Source, loader Loader) error {
	doc, err := src.Load(ctx)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrEmptyRules
	}
	if err := loader.LoadDocument(doc); err != nil {
		return fmt.Errorf("failed to load %s rules: %w", src.Name(), err)
	}
	return nil
}
