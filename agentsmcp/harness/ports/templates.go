package harnessports

import "context"

// TemplateSource loads instruction templates by path relative to the project root.
type TemplateSource interface {
	Load(ctx context.Context, path string) (string, error)
}
