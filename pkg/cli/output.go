package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// OutputFormat selects how command results are printed.
type OutputFormat string

const (
	// FormatText is human-readable output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
)

// Formatter writes command results.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// Texter is implemented by results with their own text rendering.
type Texter interface {
	Text() string
}

// TextFormatter prints Texter values with Text and anything else with %v.
type TextFormatter struct{}

// FormatTo writes data followed by a newline.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	var s string
	if t, ok := data.(Texter); ok {
		s = t.Text()
	} else {
		s = fmt.Sprintf("%v", data)
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}

// JSONFormatter prints data as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data as one JSON document.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

// NewFormatter returns the formatter for format. An empty format is text.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	default:
		return nil, NewConfigError("output", fmt.Sprintf("unknown format %q: must be 'text' or 'json'", format))
	}
}
