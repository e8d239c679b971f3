// Package queue implements the process-wide FIFO of compiled queries
// awaiting a worker.
//
// Producers are the public submission surface; consumers are query workers,
// each pulling exactly one entry at a time with a blocking pop.
package queue

import (
	"sync"

	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/types"
)

// Entry is one ready query: where to reply, its QID, the compiled
// sub-queries in coverage-plan order, and the table schema.
type Entry struct {
	ReplyCh    chan<- types.QueryResult
	QID        types.QID
	SubQueries []*query.SubQuery
	DDL        *ddl.DDL
}

// Queue is a bounded blocking FIFO.
type Queue struct {
	mu      sync.Mutex
	ch      chan *Entry
	stopped bool
}

// New creates a queue with the given capacity.
func New(depth int) *Queue {
	if depth <= 0 {
		depth = 100
	}
	return &Queue{ch: make(chan *Entry, depth)}
}

// Push enqueues a query. Returns ErrQueueFull at capacity (backpressure)
// and ErrQueueStopped after Stop.
func (q *Queue) Push(e *Entry) error {
	// The lock spans the send attempt so Stop cannot close the channel
	// between the flag check and the send.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return errors.ErrQueueStopped
	}

	select {
	case q.ch <- e:
		return nil
	default:
		return errors.ErrQueueFull
	}
}

// BlockingPop blocks until an entry is ready. ok is false after Stop once
// the queue has drained.
func (q *Queue) BlockingPop() (*Entry, bool) {
	e, ok := <-q.ch
	return e, ok
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Stop rejects further pushes and lets consumers drain the remainder.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.stopped = true
	close(q.ch)
}
