// Package queue decouples webhook acknowledgement from remediation work. The
// queue is unbounded and ordered: enqueueing never blocks the ingress path,
// workers block on dequeue until work arrives or the queue is closed.
package queue

import (
	"sync"

	"github.com/linnemanlabs/remedy/internal/incident"
)

// Task is one unit of remediation work: the inbound event and the incident
// extracted from it. Ownership transfers to the dequeuing worker.
type Task struct {
	Event    incident.Event
	Incident incident.Incident
}

// Queue is a multi-producer FIFO of remediation tasks.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Task
	closed bool
}

// New creates an empty queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a task. It never blocks; it reports false only after Close.
func (q *Queue) Enqueue(t Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, t)
	q.cond.Signal()
	return true
}

// Dequeue blocks until a task is available or the queue is closed. It
// reports ok=false once the queue is closed and drained.
func (q *Queue) Dequeue() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return Task{}, false
	}

	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

// Close stops accepting new tasks and wakes all blocked consumers. Tasks
// already enqueued are still handed out; in-flight remediation is abandoned
// by the workers' own shutdown handling.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
