// Package storage implements the range-scan backend under the query path:
// records keyed by (bucket, encoded local key) with ordered scans, plus the
// meta table that persists activated table definitions.
package storage

import (
	"time"

	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/types"
)

// KeyRange is the encoded local-key range of one sub-query.
type KeyRange struct {
	Start          []byte
	End            []byte
	StartInclusive bool
	EndInclusive   bool
}

// Engine is the storage surface the query core drives. StartRangeScan is
// asynchronous: replies stream back to the channel as one results chunk
// followed by done, or a single error. The reply channel must not be closed
// until the scan's done or error has been delivered.
type Engine interface {
	StartRangeScan(bucket string, rng KeyRange, sub *query.SubQuery, id types.SubQID,
		timeout time.Duration, reply chan<- types.ScanMessage)

	Put(bucket string, pkey, lkey, value []byte) error
	Get(bucket string, lkey []byte) ([]byte, error)
	Delete(bucket string, lkey []byte) error

	PutTableDef(name string, ddlJSON []byte) error
	TableDefs() (map[string][]byte, error)

	Close() error
}
