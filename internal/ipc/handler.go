package ipc

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kartikbazzad/tskv/internal/config"
	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/logger"
	"github.com/kartikbazzad/tskv/internal/metrics"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/queue"
	"github.com/kartikbazzad/tskv/internal/storage"
	"github.com/kartikbazzad/tskv/internal/table"
	"github.com/kartikbazzad/tskv/internal/types"
)

// Handler drives statements through the query core: registry checks,
// compilation, queue submission, and the reply wait. One handler serves all
// connections.
type Handler struct {
	cfg      *config.Config
	registry *table.Registry
	queue    *queue.Queue
	engine   storage.Engine
	logger   *logger.Logger
	metrics  *metrics.Exporter

	qidCounter atomic.Uint64
}

// NewHandler creates a handler.
func NewHandler(cfg *config.Config, reg *table.Registry, q *queue.Queue,
	engine storage.Engine, log *logger.Logger, m *metrics.Exporter) *Handler {
	return &Handler{
		cfg:      cfg,
		registry: reg,
		queue:    q,
		engine:   engine,
		logger:   log,
		metrics:  m,
	}
}

// Handle executes one request frame and builds the response.
func (h *Handler) Handle(frame *RequestFrame) *ResponseFrame {
	resp := &ResponseFrame{RequestID: frame.RequestID}

	body, err := h.dispatch(frame.Command, frame.Body)
	if err != nil {
		resp.Status = StatusError
		resp.ErrCode = errors.WireCode(err)
		resp.Body, _ = json.Marshal(map[string]string{"error": err.Error()})
		return resp
	}

	resp.Status = StatusOK
	resp.Body = body
	return resp
}

func (h *Handler) dispatch(command uint8, body []byte) ([]byte, error) {
	switch command {
	case CmdQuery:
		sel, err := DecodeSelect(body)
		if err != nil {
			return nil, err
		}
		rows, err := h.Select(sel)
		if err != nil {
			return nil, err
		}
		return EncodeRows(rows)
	case CmdDescribe:
		desc, err := DecodeDescribe(body)
		if err != nil {
			return nil, err
		}
		rows, err := h.Describe(desc)
		if err != nil {
			return nil, err
		}
		return EncodeRows(rows)
	case CmdInsert:
		ins, err := DecodeInsert(body)
		if err != nil {
			return nil, err
		}
		if err := h.Insert(ins); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"status": "ok"})
	case CmdCreateTable:
		name, err := h.CreateTable(body)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"table": name})
	case CmdListTables:
		return json.Marshal(h.registry.Tables())
	case CmdStats:
		return []byte(h.metrics.Export(h.stats())), nil
	default:
		return nil, errors.ErrInvalidFrame
	}
}

// Select runs a SELECT end to end: registry state check, validation,
// compilation, queue submission, reply wait.
func (h *Handler) Select(sel *query.Select) ([]types.Row, error) {
	if h.registry.GetState(sel.Table) == table.StateNotFound {
		return nil, errors.ErrTableNotFound
	}

	helper, err := h.registry.Helper(sel.Table)
	if err != nil {
		return nil, err
	}
	if err := helper.IsQueryValid(sel); err != nil {
		return nil, err
	}

	subs, err := query.Compile(helper.GetDDL(), sel, h.cfg.Query.MaxQuantaSpan)
	if err != nil {
		return nil, err
	}

	qid := types.QID{Node: h.cfg.NodeName, Counter: h.qidCounter.Add(1)}
	replyCh := make(chan types.QueryResult, 1)

	entry := &queue.Entry{
		ReplyCh:    replyCh,
		QID:        qid,
		SubQueries: subs,
		DDL:        helper.GetDDL(),
	}
	if err := h.queue.Push(entry); err != nil {
		return nil, err
	}

	// The worker aborts sub-queries at the storage deadline; the outer wait
	// only catches a wedged worker.
	deadline := 2 * h.cfg.Query.SubQueryTimeout
	select {
	case result := <-replyCh:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Rows, nil
	case <-time.After(deadline):
		return nil, errors.ErrBackendTimeout
	}
}

// Describe returns one row per column: name, type, nullability, and key
// positions. The quantum column also reports its bucket size and unit.
func (h *Handler) Describe(desc *query.Describe) ([]types.Row, error) {
	if h.registry.GetState(desc.Table) == table.StateNotFound {
		return nil, errors.ErrTableNotFound
	}
	d, err := h.registry.GetDDL(desc.Table)
	if err != nil {
		return nil, err
	}

	pkPos := make(map[string]int64, len(d.PartitionKey))
	for i, kc := range d.PartitionKey {
		pkPos[kc.BaseField()] = int64(i + 1)
	}
	lkPos := make(map[string]int64, len(d.LocalKey))
	for i, name := range d.LocalKey {
		lkPos[name] = int64(i + 1)
	}
	quantum := d.Quantum()

	rows := make([]types.Row, 0, len(d.Fields))
	for _, f := range d.Fields {
		row := types.Row{
			{Field: "column", Value: f.Name},
			{Field: "type", Value: string(f.Type)},
			{Field: "is_null", Value: f.Nullable},
			{Field: "partition_key", Value: posOrNil(pkPos, f.Name)},
			{Field: "local_key", Value: posOrNil(lkPos, f.Name)},
		}
		if quantum.Field == f.Name {
			row = append(row,
				types.Cell{Field: "interval", Value: quantum.N},
				types.Cell{Field: "unit", Value: string(quantum.Unit)},
			)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func posOrNil(pos map[string]int64, name string) interface{} {
	if p, ok := pos[name]; ok {
		return p
	}
	return nil
}

// Insert validates rows against the schema, encodes keys and values, and
// puts them through the storage engine.
func (h *Handler) Insert(ins *query.Insert) error {
	if h.registry.GetState(ins.Table) == table.StateNotFound {
		return errors.ErrTableNotFound
	}

	helper, err := h.registry.Helper(ins.Table)
	if err != nil {
		return err
	}
	d := helper.GetDDL()

	rows, err := query.ValidateInsert(d, ins)
	if err != nil {
		return err
	}

	for _, row := range rows {
		localCells, err := query.LocalKeyCells(d, row)
		if err != nil {
			return err
		}
		partCells, err := query.PartitionKeyCells(d, row)
		if err != nil {
			return err
		}

		lkey := storage.EncodeKeyCells(localCells)
		pkey := storage.EncodeKeyCells(partCells)
		if err := h.engine.Put(ins.Table, pkey, lkey, storage.EncodeRow(row)); err != nil {
			h.logger.With("table", ins.Table).Error("insert failed: %v", err)
			return err
		}
	}
	return nil
}

// CreateTable runs the activation path: JSON + structural validation,
// compile-state registration, persistence, and the flip to compiled.
func (h *Handler) CreateTable(ddlJSON []byte) (string, error) {
	d, err := ddl.FromJSON(ddlJSON)
	if err != nil {
		return "", errors.NewQueryError(errors.KindInvalidQuery, "%v", err)
	}

	owner := "activate/" + d.Table + "/" + uuid.NewString()
	h.registry.Insert(d.Table, d, owner, table.StateCompiling)

	log := h.logger.With("table", d.Table)

	canonical, err := d.ToJSON()
	if err == nil {
		err = h.engine.PutTableDef(d.Table, canonical)
	}
	if err != nil {
		if uerr := h.registry.UpdateState(owner, table.StateFailed); uerr != nil {
			log.Error("failed-state update: %v", uerr)
		}
		log.Error("activation failed: %v", err)
		return "", err
	}

	if err := h.registry.UpdateState(owner, table.StateCompiled); err != nil {
		return "", err
	}

	log.Info("table activated")
	return d.Table, nil
}

// RestoreTables rebuilds the registry from persisted table definitions.
// Called once at startup before the listener accepts connections.
func (h *Handler) RestoreTables() error {
	defs, err := h.engine.TableDefs()
	if err != nil {
		return err
	}
	restored := 0
	for name, ddlJSON := range defs {
		d, err := ddl.FromJSON(ddlJSON)
		if err != nil {
			h.logger.With("table", name).Error("skipping persisted definition: %v", err)
			continue
		}
		owner := "restore/" + name + "/" + uuid.NewString()
		h.registry.Insert(name, d, owner, table.StateCompiled)
		restored++
	}
	h.logger.Info("restored %d tables", restored)
	return nil
}

func (h *Handler) stats() *types.Stats {
	return &types.Stats{
		TablesActive: len(h.registry.Tables()),
		QueueDepth:   h.queue.Len(),
	}
}
