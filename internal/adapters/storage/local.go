// Package storage provides definition sources backed by files and HTTP.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jobrunner/refsys/internal/registry"
)

// FileSource implements DefinitionSource for a definitions file or a directory of
// them.
type FileSource struct {
	basePath string
}

// NewFileSource creates a source reading basePath. A directory is searched
// recursively for .yaml, .yml and .json files.
func NewFileSource(basePath string) *FileSource {
	return &FileSource{basePath: basePath}
}

// Name implements output.DefinitionSource.
func (s *FileSource) Name() string {
	return "file:" + s.basePath
}

// Path returns the configured file or directory.
func (s *FileSource) Path() string {
	return s.basePath
}

// Files returns the definition files in load order. Directory entries are
// visited in lexical order.
func (s *FileSource) Files(ctx context.Context) ([]string, error) {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{s.basePath}, nil
	}

	var files []string
	err = filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || !IsDefinitionFile(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Load implements output.DefinitionSource.
func (s *FileSource) Load(ctx context.Context) ([]registry.Definition, error) {
	files, err := s.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}

	var defs []registry.Definition
	for _, f := range files {
		loaded, err := registry.LoadFile(f)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	return defs, nil
}

// IsDefinitionFile reports whether path has a definitions file extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
