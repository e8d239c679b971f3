// Package table tracks, per table, the lifecycle of its compiled schema:
// compiling, compiled, or failed. The registry decides whether a request may
// be served and hands out per-table helper modules.
//
// The registry makes no durability guarantees; it is rebuilt from the
// storage engine's meta table on process restart.
//
// Thread Safety: all methods are safe for concurrent use.
package table

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/logger"
)

// CompileState is the lifecycle state of a table's compiled schema.
type CompileState int

const (
	StateNotFound CompileState = iota
	StateCompiling
	StateCompiled
	StateFailed
)

func (s CompileState) String() string {
	switch s {
	case StateCompiling:
		return "compiling"
	case StateCompiled:
		return "compiled"
	case StateFailed:
		return "failed"
	default:
		return "not_found"
	}
}

type row struct {
	table string
	ddl   *ddl.DDL
	owner string
	state CompileState
}

// Registry is the process-wide table -> (ddl, owner, state) map.
type Registry struct {
	mu      sync.RWMutex
	rows    map[string]*row
	owners  map[string]string // owner -> table, unique across live rows
	helpers *lru.Cache[string, *Helper]
	logger  *logger.Logger
}

// NewRegistry creates an empty registry. helperCacheLen bounds the LRU of
// per-table helper modules.
func NewRegistry(helperCacheLen int, log *logger.Logger) *Registry {
	if helperCacheLen <= 0 {
		helperCacheLen = 128
	}
	cache, _ := lru.New[string, *Helper](helperCacheLen)
	return &Registry{
		rows:    make(map[string]*row),
		owners:  make(map[string]string),
		helpers: cache,
		logger:  log.With("component", "registry"),
	}
}

// Insert unconditionally upserts a row. The owner is the identity of the
// task performing the compile; it is the only mutator until the state
// becomes terminal.
func (r *Registry) Insert(table string, d *ddl.DDL, owner string, state CompileState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.rows[table]; ok && prev.owner != owner {
		delete(r.owners, prev.owner)
	}
	r.rows[table] = &row{table: table, ddl: d, owner: owner, state: state}
	r.owners[owner] = table
	r.helpers.Remove(table)

	r.logger.Debug("registry: %s -> %s (owner %s)", table, state, owner)
}

// IsCompiling returns the owner when the table's current state is compiling.
func (r *Registry) IsCompiling(table string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if row, ok := r.rows[table]; ok && row.state == StateCompiling {
		return row.owner, true
	}
	return "", false
}

// GetState returns the table's state, or StateNotFound.
func (r *Registry) GetState(table string) CompileState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if row, ok := r.rows[table]; ok {
		return row.state
	}
	return StateNotFound
}

// GetDDL returns the table's schema regardless of state.
func (r *Registry) GetDDL(table string) (*ddl.DDL, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if row, ok := r.rows[table]; ok {
		return row.ddl, nil
	}
	return nil, errors.ErrTableNotFound
}

// UpdateState locates the unique row whose owner matches and flips its
// state, preserving the table and ddl bindings.
func (r *Registry) UpdateState(owner string, state CompileState) error {
	switch state {
	case StateCompiling, StateCompiled, StateFailed:
	default:
		return errors.ErrBadCompileState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.owners[owner]
	if !ok {
		return errors.ErrOwnerNotFound
	}
	row := r.rows[table]
	row.state = state
	r.helpers.Remove(table)

	r.logger.Debug("registry: %s -> %s (owner %s)", table, state, owner)
	return nil
}

// Helper returns the table's helper module, loading it on first use. Only
// compiled tables have helpers.
func (r *Registry) Helper(table string) (*Helper, error) {
	if h, ok := r.helpers.Get(table); ok {
		return h, nil
	}

	r.mu.RLock()
	row, ok := r.rows[table]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.ErrTableNotFound
	}
	if row.state == StateFailed {
		return nil, errors.ErrMissingHelper
	}
	if row.state != StateCompiled {
		return nil, errors.ErrTableInactive
	}

	h := newHelper(row.ddl)
	r.helpers.Add(table, h)
	return h, nil
}

// Tables returns the names of all compiled tables.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.rows))
	for name, row := range r.rows {
		if row.state == StateCompiled {
			out = append(out, name)
		}
	}
	return out
}
