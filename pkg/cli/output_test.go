package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

type summary struct{}

func (s summary) Text() string { return "matched 2 propositions" }

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{name: "texter", data: summary{}, want: "matched 2 propositions\n"},
		{name: "string", data: "ok", want: "ok\n"},
		{name: "trailing newline kept", data: "ok\n", want: "ok\n"},
		{name: "number", data: 42, want: "42\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&TextFormatter{}).FormatTo(&buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]any{"requestId": "req-1", "handle": []any{}}
	if err := (&JSONFormatter{Indent: true}).FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got["requestId"] != "req-1" {
		t.Errorf("requestId = %v, want req-1", got["requestId"])
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  \"")) {
		t.Errorf("FormatTo() = %s, want indented output", buf.String())
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  OutputFormat
		want    string
		wantErr bool
	}{
		{format: "", want: "*cli.TextFormatter"},
		{format: FormatText, want: "*cli.TextFormatter"},
		{format: FormatJSON, want: "*cli.JSONFormatter"},
		{format: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := NewFormatter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("NewFormatter() error = %T, want *ConfigError", err)
				}
				return
			}
			if got := typeName(f); got != tt.want {
				t.Errorf("NewFormatter() = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *TextFormatter:
		return "*cli.TextFormatter"
	case *JSONFormatter:
		return "*cli.JSONFormatter"
	default:
		return "unknown"
	}
}
