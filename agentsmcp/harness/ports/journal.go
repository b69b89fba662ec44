package harnessports

import (
	"context"
	"time"
)

// InvocationRecord is one finished tool call.
type InvocationRecord struct {
	ID        string
	Tool      string
	Operation string // empty when the tool name did not resolve
	IsError   bool
	Error     string // cause of an error result, never sent to clients
	StartedAt time.Time
	Duration  time.Duration
}

// InvocationJournal persists finished tool calls for later inspection.
type InvocationJournal interface {
	Record(ctx context.Context, rec InvocationRecord) error
	Recent(ctx context.Context, limit int) ([]InvocationRecord, error) // newest first
}
