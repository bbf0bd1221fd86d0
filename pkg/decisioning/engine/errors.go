package engine

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNoRulesLoaded indicates Execute was called before a ruleset was loaded.
	ErrNoRulesLoaded = errors.New("no rules loaded")

	// ErrCreateEngine wraps every failure to build an executor from a ruleset.
	ErrCreateEngine = errors.New("failed to create rules engine")

	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid engine configuration")
)

// Provider data errors raised when a bucketed ruleset is loaded.
var (
	ErrProviderDataMissing     = errors.New("provider data is missing in metadata")
	ErrIdentityTemplateMissing = errors.New("identity template is missing in provider data")
	ErrBucketsMissing          = errors.New("buckets is missing in provider data")
)

// Identity errors raised when a bucketed ruleset cannot find the visitor's
// ECID in the context.
var (
	ErrXDMMissing            = errors.New("xdm object is missing in the context")
	ErrIdentityMapMissing    = errors.New("identity map is missing in the xdm object")
	ErrECIDNamespaceMissing  = errors.New("ecid identity namespace is missing in the identity map")
	ErrECIDIdentitiesInvalid = errors.New("ecid identities array is empty or not an array")
	ErrECIDIdentityMissing   = errors.New("ecid identity is missing in the identities array")
)

// ExecutionError reports a failure while executing rules.
type ExecutionError struct {
	Provider string
	Cause    error
}

// Error returns the error message.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s executor: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
