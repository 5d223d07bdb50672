package async

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Enqueue once Shutdown has started.
var ErrClosed = errors.New("queue is shutting down")

// Job is one document waiting for extraction.
type Job struct {
	Path        string
	SHA256      string
	Force       bool // enqueue even if deduplicated
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler processes one job. Errors are logged by the queue, never retried.
type Handler interface {
	Process(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Process(ctx context.Context, job Job) error { return f(ctx, job) }
