package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ProcessorQueue is a bounded in-process worker pool over a Handler.
type ProcessorQueue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(h Handler, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		handler: h,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					start := time.Now()
					err := q.run(job)
					if err != nil {
						q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "trace_id", job.TraceID, "error", err)
					} else {
						q.logger.Info("processed document", "worker_id", workerID, "path", job.Path,
							"trace_id", job.TraceID, "elapsed_ms", time.Since(start).Milliseconds())
					}
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(job Job) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return q.handler.Process(ctx, job)
}

// Enqueue blocks while the queue is full until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued document", "path", job.Path, "force", job.Force)
		return nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for in-flight jobs or ctx, whichever first.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
