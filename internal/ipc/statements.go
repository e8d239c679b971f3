package ipc

import (
	"encoding/json"

	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/types"
)

// Wire form of statements and WHERE trees. The parser runs client-side;
// the node receives pre-parsed ASTs as JSON bodies.

type wireExpr struct {
	Op    string      `json:"op"`
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`
	Lhs   *wireExpr   `json:"lhs,omitempty"`
	Rhs   *wireExpr   `json:"rhs,omitempty"`
}

type wireSelect struct {
	Columns []string  `json:"columns"`
	Table   string    `json:"table"`
	Where   *wireExpr `json:"where,omitempty"`
}

type wireDescribe struct {
	Table string `json:"table"`
}

type wireInsert struct {
	Table   string          `json:"table"`
	Columns []string        `json:"columns,omitempty"`
	Rows    [][]interface{} `json:"rows"`
}

type wireCell struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// EncodeSelect encodes a SELECT for a CmdQuery body.
func EncodeSelect(sel *query.Select) ([]byte, error) {
	return json.Marshal(wireSelect{
		Columns: sel.Columns,
		Table:   sel.Table,
		Where:   exprToWire(sel.Where),
	})
}

// DecodeSelect decodes a CmdQuery body.
func DecodeSelect(body []byte) (*query.Select, error) {
	var ws wireSelect
	if err := json.Unmarshal(body, &ws); err != nil {
		return nil, errors.ErrInvalidFrame
	}
	where, err := exprFromWire(ws.Where)
	if err != nil {
		return nil, err
	}
	return &query.Select{Columns: ws.Columns, Table: ws.Table, Where: where}, nil
}

// EncodeDescribe encodes a DESCRIBE for a CmdDescribe body.
func EncodeDescribe(d *query.Describe) ([]byte, error) {
	return json.Marshal(wireDescribe{Table: d.Table})
}

// DecodeDescribe decodes a CmdDescribe body.
func DecodeDescribe(body []byte) (*query.Describe, error) {
	var wd wireDescribe
	if err := json.Unmarshal(body, &wd); err != nil {
		return nil, errors.ErrInvalidFrame
	}
	return &query.Describe{Table: wd.Table}, nil
}

// EncodeInsert encodes an INSERT for a CmdInsert body.
func EncodeInsert(ins *query.Insert) ([]byte, error) {
	return json.Marshal(wireInsert{Table: ins.Table, Columns: ins.Columns, Rows: ins.Rows})
}

// DecodeInsert decodes a CmdInsert body.
func DecodeInsert(body []byte) (*query.Insert, error) {
	var wi wireInsert
	if err := json.Unmarshal(body, &wi); err != nil {
		return nil, errors.ErrInvalidFrame
	}
	return &query.Insert{Table: wi.Table, Columns: wi.Columns, Rows: wi.Rows}, nil
}

// EncodeRows encodes a result row set for a response body.
func EncodeRows(rows []types.Row) ([]byte, error) {
	out := make([][]wireCell, 0, len(rows))
	for _, row := range rows {
		wr := make([]wireCell, 0, len(row))
		for _, c := range row {
			wr = append(wr, wireCell{Field: c.Field, Value: c.Value})
		}
		out = append(out, wr)
	}
	return json.Marshal(out)
}

// DecodeRows decodes a result row set from a response body.
func DecodeRows(body []byte) ([]types.Row, error) {
	var wire [][]wireCell
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, errors.ErrInvalidFrame
	}
	rows := make([]types.Row, 0, len(wire))
	for _, wr := range wire {
		row := make(types.Row, 0, len(wr))
		for _, c := range wr {
			row = append(row, types.Cell{Field: c.Field, Value: c.Value})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func exprToWire(e query.Expr) *wireExpr {
	switch n := e.(type) {
	case *query.Compare:
		return &wireExpr{Op: string(n.Op), Field: n.Field, Value: n.Value}
	case *query.Logical:
		return &wireExpr{Op: string(n.Op), Lhs: exprToWire(n.Left), Rhs: exprToWire(n.Right)}
	}
	return nil
}

func exprFromWire(we *wireExpr) (query.Expr, error) {
	if we == nil {
		return nil, nil
	}

	op := query.Op(we.Op)
	if op == query.OpAnd || op == query.OpOr {
		lhs, err := exprFromWire(we.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := exprFromWire(we.Rhs)
		if err != nil {
			return nil, err
		}
		if lhs == nil || rhs == nil {
			return nil, errors.ErrInvalidFrame
		}
		return &query.Logical{Op: op, Left: lhs, Right: rhs}, nil
	}

	if !op.IsComparison() || we.Field == "" {
		return nil, errors.ErrInvalidFrame
	}
	return &query.Compare{Op: op, Field: we.Field, Value: we.Value}, nil
}
