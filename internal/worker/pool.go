package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/tskv/internal/config"
	"github.com/kartikbazzad/tskv/internal/coverage"
	"github.com/kartikbazzad/tskv/internal/logger"
	"github.com/kartikbazzad/tskv/internal/metrics"
	"github.com/kartikbazzad/tskv/internal/queue"
	"github.com/kartikbazzad/tskv/internal/storage"
	"github.com/kartikbazzad/tskv/internal/types"
)

// Pool runs a fixed set of query workers over one shared queue.
//
// Thread Safety: Start and Stop are safe to call once each from any
// goroutine.
type Pool struct {
	mu       sync.Mutex
	cfg      config.QueryConfig
	queue    *queue.Queue
	dispatch Dispatcher
	workers  []*Worker
	antsPool *ants.Pool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *logger.Logger
	metrics  *metrics.Exporter
}

// NewPool creates a worker pool. Workers are not started until Start.
func NewPool(cfg config.QueryConfig, q *queue.Queue, dispatch Dispatcher, log *logger.Logger, m *metrics.Exporter) *Pool {
	return &Pool{
		cfg:      cfg,
		queue:    q,
		dispatch: dispatch,
		logger:   log,
		metrics:  m,
	}
}

// Start launches the workers on an ants goroutine pool.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.workers) > 0 {
		return
	}

	count := p.cfg.Workers
	if count <= 0 {
		count = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	antsPool, err := ants.NewPool(count, ants.WithPanicHandler(func(v any) {
		p.logger.Error("query worker panic: %v", v)
	}))
	if err == nil {
		p.antsPool = antsPool
	}

	p.workers = make([]*Worker, count)
	for i := 0; i < count; i++ {
		w := New(fmt.Sprintf("qry_worker-%d", i), p.queue, p.dispatch, p.logger, p.metrics)
		p.workers[i] = w
		p.wg.Add(1)
		run := func() {
			defer p.wg.Done()
			w.Run(ctx)
		}
		if p.antsPool == nil || p.antsPool.Submit(run) != nil {
			// Fallback: plain goroutine (e.g. invalid pool size)
			go run()
		}
	}

	p.logger.Info("query worker pool started: %d workers", count)
}

// Stop stops the queue, cancels the workers, and waits for them to finish.
func (p *Pool) Stop() {
	p.queue.Stop()

	p.mu.Lock()
	cancel := p.cancel
	antsPool := p.antsPool
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	if antsPool != nil {
		antsPool.Release()
	}

	p.logger.Info("query worker pool stopped")
}

// NewStorageDispatcher builds the production dispatcher: plan coverage for
// each sub-query and start its range scan on the storage engine, with the
// worker as the reply target. Fan-out runs on the shared ants pool when one
// is available.
func NewStorageDispatcher(planner *coverage.Planner, engine storage.Engine, nVal int,
	timeout time.Duration, fanout *ants.Pool, log *logger.Logger) Dispatcher {

	return func(items []DispatchItem, reply chan<- types.ScanMessage) {
		for _, item := range items {
			item := item
			task := func() {
				plan, err := planner.Plan(item.Sub, item.Sub.Table, nVal)
				if err != nil {
					reply <- types.ScanMessage{ID: item.ID, Err: err}
					return
				}
				log.Debug("sub-query %s -> node %s", item.ID, plan.Node)
				engine.StartRangeScan(item.Sub.Table, coverage.ScanRange(item.Sub),
					item.Sub, item.ID, timeout, reply)
			}
			if fanout == nil || fanout.Submit(task) != nil {
				go task()
			}
		}
	}
}
