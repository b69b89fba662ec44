package adapters

import (
	"context"
	"fmt"
	"path/filepath"

	ports "github.com/ZanzyTHEbar/agents-mcp/agentsmcp/harness/ports"
	"github.com/spf13/afero"
)

// FSTemplateSource reads templates from an afero filesystem. Production code
// roots it at the project directory with a BasePathFs so template paths cannot
// escape the project.
type FSTemplateSource struct {
	fs afero.Fs
}

// NewFSTemplateSource wraps an arbitrary filesystem.
func NewFSTemplateSource(fs afero.Fs) *FSTemplateSource {
	return &FSTemplateSource{fs: fs}
}

// NewProjectTemplateSource serves templates from projectRoot on the OS filesystem.
func NewProjectTemplateSource(projectRoot string) *FSTemplateSource {
	return NewFSTemplateSource(afero.NewBasePathFs(afero.NewOsFs(), projectRoot))
}

// Load reads the whole template. Each call hits the filesystem; there is no cache.
func (s *FSTemplateSource) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return string(data), nil
}

// Stat reports whether the template exists and is a regular file.
func (s *FSTemplateSource) Stat(path string) error {
	info, err := s.fs.Stat(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("stat template %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("template %s is a directory", path)
	}
	return nil
}

// Ensure FSTemplateSource implements the TemplateSource interface.
var _ ports.TemplateSource = (*FSTemplateSource)(nil)
