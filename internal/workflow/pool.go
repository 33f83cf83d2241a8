package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/remedy/internal/incident"
	"github.com/linnemanlabs/remedy/internal/queue"
)

// Pool runs background workers that drain the event queue through the
// engine. Each worker processes one incident's steps serially; ordering
// across incidents is not guaranteed.
type Pool struct {
	queue   *queue.Queue
	engine  *Engine
	workers int
	logger  log.Logger

	wg sync.WaitGroup
}

// NewPool creates a worker pool. workers below 1 is clamped to 1.
func NewPool(q *queue.Queue, engine *Engine, workers int, logger log.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Pool{
		queue:   q,
		engine:  engine,
		workers: workers,
		logger:  logger,
	}
}

// Start launches the workers. They exit once the queue is closed and
// drained; Wait blocks until then.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

// Wait blocks until all workers have exited.
func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()

	L := p.logger.With("worker", id)
	L.Info(ctx, "worker started")

	for {
		task, ok := p.queue.Dequeue()
		if !ok {
			L.Info(ctx, "worker stopping, queue closed")
			return
		}
		p.process(ctx, L, task)
	}
}

func (p *Pool) process(ctx context.Context, L log.Logger, task queue.Task) {
	defer func() {
		// A panic in one run must not take the worker down with it.
		if r := recover(); r != nil {
			L.Error(ctx, fmt.Errorf("panic: %v", r), "pipeline run panicked", "dag", task.Incident.DAGName)
		}
	}()

	if task.Incident.Status != incident.StatusFailed {
		// Should not happen: ingest routes only failures here.
		L.Warn(ctx, "dropping non-failure task", "status", task.Incident.Status)
		return
	}
	p.engine.Run(ctx, task.Incident)
}
