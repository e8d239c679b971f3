// Package worker implements the per-query coordinator: it pulls one compiled
// query from the queue, fans its sub-queries out through the coverage
// planner, collects chunked replies in arrival order, and emits rows in
// coverage-plan order.
//
// Workers are single-threaded actors. A worker suspends only at its receive
// points: the next queue entry, or the next chunk / done / error message.
// Replies from different sub-queries interleave arbitrarily; reassembly by
// index restores coverage-plan order.
package worker

import (
	"context"
	"sort"
	"time"

	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/logger"
	"github.com/kartikbazzad/tskv/internal/metrics"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/queue"
	"github.com/kartikbazzad/tskv/internal/types"
)

type status int

const (
	statusVoid status = iota
	statusAccumulating
)

// DispatchItem pairs one sub-query with its sub-query identifier.
type DispatchItem struct {
	Sub *query.SubQuery
	ID  types.SubQID
}

// Dispatcher starts the storage fan-out for a batch of sub-queries, with
// replies routed to the given channel. Injectable to ease testing.
type Dispatcher func(items []DispatchItem, reply chan<- types.ScanMessage)

// inboxDepth bounds buffered storage replies per worker. Late replies from
// an aborted query land here while the worker waits on the queue, so the
// buffer must absorb a full fan-out.
const inboxDepth = 1024

// Worker owns exactly one query at a time.
type Worker struct {
	name     string
	queue    *queue.Queue
	runSubQs Dispatcher
	logger   *logger.Logger
	metrics  *metrics.Exporter

	inbox chan types.ScanMessage
	pop   chan struct{}

	// State of the current query. Valid only while active.
	active  bool
	qid     types.QID
	replyTo chan<- types.QueryResult
	qry     *query.SubQuery
	subQrys map[int]struct{}
	status  status
	result  []indexedRows
	started time.Time
}

type indexedRows struct {
	index int
	rows  []types.Row
}

// New creates a worker. The dispatcher is the storage fan-out; tests inject
// their own.
func New(name string, q *queue.Queue, dispatch Dispatcher, log *logger.Logger, m *metrics.Exporter) *Worker {
	w := &Worker{
		name:     name,
		queue:    q,
		runSubQs: dispatch,
		logger:   log.With("worker", name),
		metrics:  m,
		inbox:    make(chan types.ScanMessage, inboxDepth),
		pop:      make(chan struct{}, 1),
	}
	w.popNext()
	return w
}

// Inbox is the worker's reply target for storage messages.
func (w *Worker) Inbox() chan<- types.ScanMessage {
	return w.inbox
}

// Run drives the worker until ctx is cancelled or the queue stops.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.inbox:
			w.onMessage(msg)
		case <-w.pop:
			w.drainStale()
			entry, ok := w.queue.BlockingPop()
			if !ok {
				return
			}
			if err := w.execute(entry); err != nil {
				entry.ReplyCh <- types.QueryResult{Err: err}
			}
		}
	}
}

// popNext queues the self-message that re-enters the idle state.
func (w *Worker) popNext() {
	select {
	case w.pop <- struct{}{}:
	default:
	}
}

// drainStale discards replies that arrived for a query already concluded.
func (w *Worker) drainStale() {
	for {
		select {
		case msg := <-w.inbox:
			w.logger.Debug("discarding stale message %s", msg.ID)
			w.metrics.RecordStale()
		default:
			return
		}
	}
}

// execute assigns indices 1..N in coverage-plan order, dispatches the
// batch, and arms the accumulation state.
func (w *Worker) execute(entry *queue.Entry) error {
	if w.active || w.status != statusVoid {
		// Bug in the caller: a worker owns one query at a time.
		w.logger.Error("execute while busy (qid %s)", w.qid)
		return errors.ErrMismanagement
	}

	items := make([]DispatchItem, 0, len(entry.SubQueries))
	for i, sub := range entry.SubQueries {
		items = append(items, DispatchItem{
			Sub: sub,
			ID:  types.SubQID{Index: i + 1, QID: entry.QID},
		})
	}

	w.runSubQs(items, w.inbox)

	w.active = true
	w.qid = entry.QID
	w.replyTo = entry.ReplyCh
	w.qry = entry.SubQueries[0]
	w.subQrys = make(map[int]struct{}, len(items))
	for i := 1; i <= len(items); i++ {
		w.subQrys[i] = struct{}{}
	}
	w.status = statusVoid
	w.result = nil
	w.started = time.Now()

	w.metrics.RecordSubQueries(len(items))
	w.logger.Debug("executing %s with %d sub-queries", w.qid, len(items))
	return nil
}

func (w *Worker) onMessage(msg types.ScanMessage) {
	if !w.active || msg.ID.QID != w.qid {
		w.logger.Debug("ignoring message for stale qid %s", msg.ID)
		w.metrics.RecordStale()
		return
	}

	switch {
	case msg.Err != nil:
		w.onError(msg.ID, msg.Err)
	case msg.Done:
		w.onDone(msg.ID)
	default:
		w.onChunk(msg.ID, msg.Chunk)
	}
}

// onChunk accepts the first chunk for an outstanding index and discards the
// rest. A sub-query yields exactly one chunk of results; the accumulation
// policy for multi-chunk backends would change here.
func (w *Worker) onChunk(id types.SubQID, chunk types.Chunk) {
	if _, outstanding := w.subQrys[id.Index]; !outstanding {
		w.logger.Debug("ignoring extra chunk for %s", id)
		w.metrics.RecordStale()
		return
	}

	rows, err := DecodeChunk(chunk, w.qry.Columns)
	if err != nil {
		w.onError(id, err)
		return
	}

	w.result = append([]indexedRows{{index: id.Index, rows: rows}}, w.result...)
	delete(w.subQrys, id.Index)
	w.status = statusAccumulating
	w.metrics.RecordChunk(len(rows))
}

// onDone finishes the query once every index has delivered its chunk.
func (w *Worker) onDone(id types.SubQID) {
	if len(w.subQrys) > 0 {
		return
	}

	sort.Slice(w.result, func(i, j int) bool {
		return w.result[i].index < w.result[j].index
	})

	var rows []types.Row
	for _, ir := range w.result {
		rows = append(rows, ir.rows...)
	}

	w.replyTo <- types.QueryResult{Rows: rows}
	w.metrics.RecordQuery("ok", time.Since(w.started))
	w.logger.Debug("%s done, %d rows", w.qid, len(rows))
	w.reset()
}

// onError aborts the whole query: the first error wins and accumulated
// chunks are dropped. Late replies from the remaining sub-queries fail the
// qid check and are discarded.
func (w *Worker) onError(id types.SubQID, err error) {
	w.logger.Warn("%s failed: %v", id, err)
	w.replyTo <- types.QueryResult{Err: err}
	w.metrics.RecordQuery("error", time.Since(w.started))
	w.reset()
}

func (w *Worker) reset() {
	w.active = false
	w.qid = types.QID{}
	w.replyTo = nil
	w.qry = nil
	w.subQrys = nil
	w.status = statusVoid
	w.result = nil
	w.popNext()
}
