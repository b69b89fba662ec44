package harness

import "errors"

var (
	ErrMissingArguments     = errors.New("missing arguments for tool call")
	ErrUnknownOperation     = errors.New("Unknown tool")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrTemplateLoad         = errors.New("failed to load agent template")
	ErrProcessFailure       = errors.New("agent process failed")
	ErrSilentSuccess        = errors.New("agent wrote only diagnostics")
	ErrBindingMissing       = errors.New("no agent binding for operation")
	ErrBindingMismatch      = errors.New("agent bindings do not match catalog")
)
