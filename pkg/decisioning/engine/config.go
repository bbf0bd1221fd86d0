package engine

import (
	"fmt"
)

// EngineConfig contains configuration for the rules engine.
type EngineConfig struct {
	// ValidateSchema checks documents passed to LoadDocument against the
	// ruleset JSON Schema before building rules.
	// Default: false.
	ValidateSchema bool

	// MaxConditionDepth is the deepest condition nesting LoadDocument accepts.
	// Default: 32.
	MaxConditionDepth int

	// Matchers adds or replaces matcher implementations by operator code.
	Matchers map[string]MatcherFunc
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		ValidateSchema:    false,
		MaxConditionDepth: 32,
	}
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.MaxConditionDepth <= 0 {
		return fmt.Errorf("%w: max condition depth must be positive", ErrInvalidConfig)
	}
	for code, fn := range c.Matchers {
		if code == "" || fn == nil {
			return fmt.Errorf("%w: matcher %q has no implementation", ErrInvalidConfig, code)
		}
	}
	return nil
}

// WithSchemaValidation returns a copy of the config with schema validation set.
func (c *EngineConfig) WithSchemaValidation(enabled bool) *EngineConfig {
	cp := *c
	cp.ValidateSchema = enabled
	return &cp
}

// WithMatcher returns a copy of the config with an extra matcher.
func (c *EngineConfig) WithMatcher(code string, fn MatcherFunc) *EngineConfig {
	cp := *c
	cp.Matchers = make(map[string]MatcherFunc, len(c.Matchers)+1)
	for k, v := range c.Matchers {
		cp.Matchers[k] = v
	}
	cp.Matchers[code] = fn
	return &cp
}
