// Package coverage assigns sub-queries to storage nodes: it packs the
// sub-query's start key into an engine-level key, hashes it, and picks the
// single primary owner.
//
// Fallbacks are never used. A sub-query is served by a primary or it fails;
// partial results from fallbacks would be incorrect.
package coverage

import (
	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/ring"
	"github.com/kartikbazzad/tskv/internal/storage"
)

// Plan is the coverage target of one sub-query: the owning node and the
// (always empty) vnode filter list.
type Plan struct {
	Node    string
	Filters []string
}

// Planner plans coverage against the cluster ring.
type Planner struct {
	ring *ring.Ring
}

// New creates a planner over the given ring.
func New(r *ring.Ring) *Planner {
	return &Planner{ring: r}
}

// Plan computes the storage key for a sub-query and picks its primary
// owner at replication factor nVal.
func (p *Planner) Plan(sub *query.SubQuery, bucket string, nVal int) (Plan, error) {
	key := storage.EncodeKeyCells(partitionCells(sub))
	idx := p.ring.ChashKey(bucket, key)

	owners := p.ring.PrimaryOwners(idx, nVal)
	if len(owners) == 0 {
		return Plan{}, errors.ErrNoPrimaries
	}
	return Plan{Node: owners[0], Filters: nil}, nil
}

// partitionCells reorders the sub-query's start key into partition-key
// order, rounding the quantum component down to its bucket base. The
// compiler guarantees the start key covers the full local key.
func partitionCells(sub *query.SubQuery) []query.KeyCell {
	byName := make(map[string]query.KeyCell, len(sub.Where.StartKey))
	for _, c := range sub.Where.StartKey {
		byName[c.Field] = c
	}

	cells := make([]query.KeyCell, 0, len(sub.DDL.PartitionKey))
	for _, kc := range sub.DDL.PartitionKey {
		cell := byName[kc.BaseField()]
		if kc.Quantum != nil {
			if ts, ok := cell.Value.(int64); ok {
				cell.Value = kc.Quantum.BucketBase(ts)
			}
		}
		cells = append(cells, cell)
	}
	return cells
}

// ScanRange encodes a sub-query's compiled key range for the storage
// engine.
func ScanRange(sub *query.SubQuery) storage.KeyRange {
	return storage.KeyRange{
		Start:          storage.EncodeKeyCells(sub.Where.StartKey),
		End:            storage.EncodeKeyCells(sub.Where.EndKey),
		StartInclusive: sub.Where.StartInclusive,
		EndInclusive:   sub.Where.EndInclusive,
	}
}
