package types

import "fmt"

// QID identifies one query for the lifetime of its worker. It is minted at
// dispatch time from the owning node's name and a node-local counter, and is
// meaningful only until the worker sends the final reply.
type QID struct {
	Node    string
	Counter uint64
}

func (q QID) String() string {
	return fmt.Sprintf("%s/%d", q.Node, q.Counter)
}

// SubQID identifies one sub-query within a query. Index is the 1-based
// position of the sub-query in coverage-plan order.
type SubQID struct {
	Index int
	QID   QID
}

func (s SubQID) String() string {
	return fmt.Sprintf("%s#%d", s.QID, s.Index)
}

// KV is one encoded record returned by a storage range scan.
type KV struct {
	Key   []byte
	Value []byte
}

// Chunk is one batch of records streamed back from a range scan.
type Chunk []KV

// Cell is one decoded column value. Value is nil for null cells.
type Cell struct {
	Field string
	Value interface{}
}

// Row is an ordered list of cells, preserving stored column order.
type Row []Cell

// ScanMessage is one reply from a storage range scan, routed back to the
// owning worker by SubQID. Exactly one of Chunk / Done / Err is meaningful.
type ScanMessage struct {
	ID    SubQID
	Chunk Chunk
	Done  bool
	Err   error
}

// QueryResult is the final reply for one query: the assembled rows, or the
// first error that aborted it.
type QueryResult struct {
	Rows []Row
	Err  error
}

// Stats is a snapshot of node-level query counters for the metrics exporter.
type Stats struct {
	QueriesTotal      uint64
	QueriesFailed     uint64
	SubQueriesTotal   uint64
	ChunksTotal       uint64
	RowsReturnedTotal uint64
	TablesActive      int
	QueueDepth        int
}
