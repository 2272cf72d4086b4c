package chat

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commercekit/support-chat/pkg/logger"
)

// taskRunner executes fire-and-forget side effects (mark-read, stats
// refresh) off the caller's goroutine. Failures are logged, never
// surfaced: they do not affect correctness of the visible state.
type taskRunner struct {
	ch     chan task
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once
	logger *logger.Logger
}

type task struct {
	name string
	fn   func(ctx context.Context) error
}

const taskTimeout = 15 * time.Second

func newTaskRunner(log *logger.Logger) *taskRunner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &taskRunner{
		ch:     make(chan task, 64),
		done:   make(chan struct{}),
		cancel: cancel,
		logger: log,
	}
	go r.run(ctx)
	return r
}

func (r *taskRunner) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.ch:
			taskCtx, cancel := context.WithTimeout(ctx, taskTimeout)
			if err := t.fn(taskCtx); err != nil {
				r.logger.Warn("background task failed",
					zap.String("task", t.name),
					zap.Error(err),
				)
			}
			cancel()
		}
	}
}

// Dispatch queues a task without blocking. If the queue is full the task
// is dropped with a warning; these are best-effort side effects.
func (r *taskRunner) Dispatch(name string, fn func(ctx context.Context) error) {
	select {
	case r.ch <- task{name: name, fn: fn}:
	default:
		r.logger.Warn("background task queue full, dropping task",
			zap.String("task", name),
		)
	}
}

// Close stops the worker. Queued tasks that have not started are dropped.
func (r *taskRunner) Close() {
	r.once.Do(func() {
		r.cancel()
		<-r.done
	})
}
