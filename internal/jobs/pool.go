package jobs

import (
	"context"
	"sync"

	"resume-tailor/internal/shared/telemetry"
)

// Task is a unit of work executed by the pool.
type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of workers with a bounded queue. It
// replaces unbounded per-request goroutines so LLM work cannot pile up
// without limit.
type Pool struct {
	tasks   chan Task
	wg      sync.WaitGroup
	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPool creates a pool with the given queue capacity.
func NewPool(queueSize int) *Pool {
	if queueSize <= 0 {
		queueSize = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		tasks:   make(chan Task, queueSize),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start launches the worker goroutines. Calling it twice is a no-op.
func (p *Pool) Start(workers int) {
	p.startOnce.Do(func() {
		if workers <= 0 {
			workers = 4
		}
		for i := 0; i < workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		telemetry.Info("pool.started", map[string]any{"workers": workers, "queue_size": cap(p.tasks)})
	})
}

// Submit enqueues a task without blocking. It returns ErrQueueFull when the
// queue has no room, so callers can fail the job instead of hanging.
func (p *Pool) Submit(task Task) error {
	// The stopped flag is checked and the send performed under one lock so
	// Stop cannot close the channel between them.
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return p.baseCtx.Err()
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop cancels running tasks, drains the queue, and waits for workers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(p.tasks)
		p.wg.Wait()
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("pool.task_panic", map[string]any{"worker": id, "panic": rec})
		}
	}()
	task(p.baseCtx)
}
