// Package metrics provides Prometheus/OpenMetrics format metrics for the
// query path.
package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kartikbazzad/tskv/internal/types"
)

// Exporter accumulates query counters and renders them in Prometheus text
// format.
type Exporter struct {
	mu sync.RWMutex

	queriesTotal map[string]uint64 // status -> count
	durations    []float64         // query durations in seconds, last N

	subQueriesTotal uint64
	chunksTotal     uint64
	rowsTotal       uint64
	staleTotal      uint64
}

// NewExporter creates an empty exporter.
func NewExporter() *Exporter {
	return &Exporter{
		queriesTotal: make(map[string]uint64),
	}
}

// RecordQuery records one finished query with its status and duration.
func (e *Exporter) RecordQuery(status string, duration time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.queriesTotal[status]++
	e.durations = append(e.durations, duration.Seconds())

	// Keep only the last 1000 durations
	if len(e.durations) > 1000 {
		e.durations = e.durations[len(e.durations)-1000:]
	}
}

// RecordSubQueries records sub-queries dispatched for one query.
func (e *Exporter) RecordSubQueries(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subQueriesTotal += uint64(n)
}

// RecordChunk records one accepted result chunk and its decoded row count.
func (e *Exporter) RecordChunk(rows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chunksTotal++
	e.rowsTotal += uint64(rows)
}

// RecordStale records one discarded late or duplicate message.
func (e *Exporter) RecordStale() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.staleTotal++
}

// Export returns metrics in Prometheus/OpenMetrics format.
func (e *Exporter) Export(stats *types.Stats) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var output string

	output += "# HELP tskv_queries_total Total number of queries by status\n"
	output += "# TYPE tskv_queries_total counter\n"
	for status, count := range e.queriesTotal {
		output += fmt.Sprintf("tskv_queries_total{status=%q} %d\n", status, count)
	}

	output += "# HELP tskv_query_duration_seconds Query duration in seconds\n"
	output += "# TYPE tskv_query_duration_seconds summary\n"
	if len(e.durations) > 0 {
		var sum float64
		min, max := e.durations[0], e.durations[0]
		for _, d := range e.durations {
			sum += d
			if d < min {
				min = d
			}
			if d > max {
				max = d
			}
		}
		sorted := append([]float64(nil), e.durations...)
		sort.Float64s(sorted)
		median := sorted[len(sorted)/2]

		output += fmt.Sprintf("tskv_query_duration_seconds{quantile=\"0\"} %f\n", min)
		output += fmt.Sprintf("tskv_query_duration_seconds{quantile=\"0.5\"} %f\n", median)
		output += fmt.Sprintf("tskv_query_duration_seconds{quantile=\"1\"} %f\n", max)
		output += fmt.Sprintf("tskv_query_duration_seconds_sum %f\n", sum)
		output += fmt.Sprintf("tskv_query_duration_seconds_count %d\n", len(e.durations))
	}

	output += "# HELP tskv_sub_queries_total Total number of sub-queries dispatched\n"
	output += "# TYPE tskv_sub_queries_total counter\n"
	output += fmt.Sprintf("tskv_sub_queries_total %d\n", e.subQueriesTotal)

	output += "# HELP tskv_chunks_total Total number of result chunks accepted\n"
	output += "# TYPE tskv_chunks_total counter\n"
	output += fmt.Sprintf("tskv_chunks_total %d\n", e.chunksTotal)

	output += "# HELP tskv_rows_returned_total Total number of rows decoded from accepted result chunks\n"
	output += "# TYPE tskv_rows_returned_total counter\n"
	output += fmt.Sprintf("tskv_rows_returned_total %d\n", e.rowsTotal)

	output += "# HELP tskv_stale_messages_total Total number of late or duplicate storage replies discarded\n"
	output += "# TYPE tskv_stale_messages_total counter\n"
	output += fmt.Sprintf("tskv_stale_messages_total %d\n", e.staleTotal)

	output += "# HELP tskv_tables_active Number of compiled tables\n"
	output += "# TYPE tskv_tables_active gauge\n"
	output += fmt.Sprintf("tskv_tables_active %d\n", stats.TablesActive)

	output += "# HELP tskv_queue_depth Pending queries in the submission queue\n"
	output += "# TYPE tskv_queue_depth gauge\n"
	output += fmt.Sprintf("tskv_queue_depth %d\n", stats.QueueDepth)

	return output
}
