package ruleset

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRuleset indicates a document that cannot be turned into rules.
	ErrInvalidRuleset = errors.New("invalid ruleset")

	// ErrSchemaViolation indicates a document rejected by the ruleset schema.
	ErrSchemaViolation = errors.New("ruleset schema violation")
)

// ParseError reports where in a rules document parsing failed. Path is a
// JSON-pointer-like location such as "/rules/2/condition".
type ParseError struct {
	Path    string
	Message string
	Cause   error
}

// Error returns the error message.
func (e *ParseError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	if e.Cause != nil {
		return fmt.Sprintf("parse %s: %s: %v", path, e.Message, e.Cause)
	}
	return fmt.Sprintf("parse %s: %s", path, e.Message)
}

// Unwrap makes every ParseError match ErrInvalidRuleset as well as its cause.
func (e *ParseError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidRuleset, e.Cause}
	}
	return []error{ErrInvalidRuleset}
}

func parseErrorf(path, format string, args ...any) *ParseError {
	return &ParseError{Path: path, Message: fmt.Sprintf(format, args...)}
}
