package decisioning

import (
	"errors"

	"odd-hq/decisioning/pkg/ruleset/source"
)

var (
	// ErrRulesEmpty indicates on-device decisioning without a rules document.
	ErrRulesEmpty = source.ErrEmptyRules

	// ErrEdgeNotConfigured indicates an edge call on a client without a
	// datastream id.
	ErrEdgeNotConfigured = errors.New("edge requests require a datastream id")

	// ErrClientClosed indicates use of a closed client.
	ErrClientClosed = errors.New("client is closed")
)
