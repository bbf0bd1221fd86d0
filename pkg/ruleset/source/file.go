package source

import (
	"context"
	"fmt"
	"os"

	"odd-hq/decisioning/pkg/edge"
)

// FileSource reads a rules.json file.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and decodes the file.
func (s *FileSource) Load(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	doc, err := edge.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rules file %s: %w", s.path, err)
	}
	return doc, nil
}

// Name returns "file".
func (s *FileSource) Name() string { return "file" }

// Path returns the file path.
func (s *FileSource) Path() string { return s.path }
