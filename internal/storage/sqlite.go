package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/logger"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	bucket TEXT NOT NULL,
	pkey   BLOB NOT NULL,
	lkey   BLOB NOT NULL,
	value  BLOB NOT NULL,
	PRIMARY KEY (bucket, lkey)
);
CREATE TABLE IF NOT EXISTS table_defs (
	name TEXT PRIMARY KEY,
	ddl  BLOB NOT NULL
);
`

// SQLite is the node-local storage engine. Record keys are the
// order-preserving encodings from keycodec.go, so SQLite's memcmp BLOB
// ordering matches typed key order.
type SQLite struct {
	mu         sync.Mutex
	db         *sql.DB
	closed     bool
	retry      *errors.RetryController
	classifier *errors.Classifier
	logger     *logger.Logger
}

// OpenSQLite opens (creating if needed) the engine at path. fetchRetries is
// the retry budget for transient scan failures.
func OpenSQLite(path string, fetchRetries int, log *logger.Logger) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{
		db:         db,
		retry:      errors.NewRetryController(fetchRetries),
		classifier: errors.NewClassifier(),
		logger:     log.With("component", "storage"),
	}, nil
}

// StartRangeScan scans the sub-query's key range in key order, applies the
// residual filter, and streams one results chunk followed by done. Encoded
// records ship as-is; decoding for projection happens at the worker.
func (s *SQLite) StartRangeScan(bucket string, rng KeyRange, sub *query.SubQuery,
	id types.SubQID, timeout time.Duration, reply chan<- types.ScanMessage) {

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var chunk types.Chunk
		err := s.retry.Retry(func() error {
			var scanErr error
			chunk, scanErr = s.scan(ctx, bucket, rng, sub)
			return scanErr
		}, s.classifier)

		if err != nil {
			if ctx.Err() != nil {
				err = errors.ErrSubQueryTimeout
			}
			s.logger.Debug("range scan %s failed: %v", id, err)
			reply <- types.ScanMessage{ID: id, Err: err}
			return
		}

		reply <- types.ScanMessage{ID: id, Chunk: chunk}
		reply <- types.ScanMessage{ID: id, Done: true}
	}()
}

func (s *SQLite) scan(ctx context.Context, bucket string, rng KeyRange, sub *query.SubQuery) (types.Chunk, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.ErrEngineClosed
	}
	db := s.db
	s.mu.Unlock()

	startOp := ">="
	if !rng.StartInclusive {
		startOp = ">"
	}
	endOp := "<"
	if rng.EndInclusive {
		endOp = "<="
	}

	q := "SELECT lkey, value FROM records WHERE bucket = ? AND lkey " + startOp +
		" ? AND lkey " + endOp + " ? ORDER BY lkey"
	rows, err := db.QueryContext(ctx, q, bucket, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunk types.Chunk
	for rows.Next() {
		var lkey, value []byte
		if err := rows.Scan(&lkey, &value); err != nil {
			return nil, err
		}
		if len(value) > 0 && sub != nil && sub.Where.Filter != nil {
			keep, err := matchesFilter(value, sub.Where.Filter)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
		}
		chunk = append(chunk, types.KV{
			Key:   append([]byte(nil), lkey...),
			Value: append([]byte(nil), value...),
		})
	}
	return chunk, rows.Err()
}

func matchesFilter(value []byte, filter query.Expr) (bool, error) {
	row, err := DecodeRow(value)
	if err != nil {
		return false, err
	}
	byName := make(map[string]interface{}, len(row))
	for _, c := range row {
		byName[c.Field] = c.Value
	}
	return query.EvalFilter(filter, byName), nil
}

// Put writes one record. An empty value is a tombstone.
func (s *SQLite) Put(bucket string, pkey, lkey, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrEngineClosed
	}

	_, err := s.db.Exec(
		"INSERT INTO records (bucket, pkey, lkey, value) VALUES (?, ?, ?, ?) "+
			"ON CONFLICT (bucket, lkey) DO UPDATE SET pkey = excluded.pkey, value = excluded.value",
		bucket, pkey, lkey, value)
	return err
}

// Get reads one record's value by local key.
func (s *SQLite) Get(bucket string, lkey []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.ErrEngineClosed
	}

	var value []byte
	err := s.db.QueryRow("SELECT value FROM records WHERE bucket = ? AND lkey = ?", bucket, lkey).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, errors.ErrRecordNotFound
	}
	return value, err
}

// Delete removes one record by local key.
func (s *SQLite) Delete(bucket string, lkey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrEngineClosed
	}

	_, err := s.db.Exec("DELETE FROM records WHERE bucket = ? AND lkey = ?", bucket, lkey)
	return err
}

// PutTableDef persists an activated table definition.
func (s *SQLite) PutTableDef(name string, ddlJSON []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrEngineClosed
	}

	_, err := s.db.Exec(
		"INSERT INTO table_defs (name, ddl) VALUES (?, ?) ON CONFLICT (name) DO UPDATE SET ddl = excluded.ddl",
		name, ddlJSON)
	return err
}

// TableDefs loads all persisted table definitions, for registry rebuild on
// startup.
func (s *SQLite) TableDefs() (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.ErrEngineClosed
	}

	rows, err := s.db.Query("SELECT name, ddl FROM table_defs")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := make(map[string][]byte)
	for rows.Next() {
		var name string
		var ddlJSON []byte
		if err := rows.Scan(&name, &ddlJSON); err != nil {
			return nil, err
		}
		defs[name] = ddlJSON
	}
	return defs, rows.Err()
}

// Close closes the engine. In-flight scans fail with ErrEngineClosed or a
// driver error, surfaced to the worker as a sub-query error.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
