package query

import (
	"strings"

	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/errors"
)

// bound is one extracted time bound (value + the operator that set it).
type bound struct {
	op  Op
	val int64
	set bool
}

// Compile validates a SELECT against the table schema and expands it into
// one sub-query per quantum window its time range crosses, in ascending time
// order. maxQuantaSpan caps the expansion.
//
// The stages, in order:
//  1. flatten the and-chain into a working set of leaves and or-subtrees
//  2. extract the lower/upper bound on the quantum field
//  3. bind every other local-key field to an equality
//  4. type the residual filter and the key cells against the DDL
//  5. build the start/end key in local-key order
//  6. expand across quantum boundaries
func Compile(d *ddl.DDL, sel *Select, maxQuantaSpan int) ([]*SubQuery, error) {
	if sel.Executable {
		return nil, errors.QueryErr(errors.KindAlreadyCompiled)
	}
	if len(sel.Columns) == 0 {
		return nil, errors.QueryErr(errors.KindFullTableScan)
	}
	if sel.Where == nil {
		return nil, errors.QueryErr(errors.KindNoLowerBound)
	}

	quantum := d.Quantum()
	working := flattenAnd(sel.Where)

	lower, upper, residual, err := extractBounds(working, quantum.Field)
	if err != nil {
		return nil, err
	}
	if !lower.set {
		return nil, errors.QueryErr(errors.KindNoLowerBound)
	}
	if !upper.set {
		return nil, errors.QueryErr(errors.KindNoUpperBound)
	}
	if lower.val > upper.val {
		return nil, errors.QueryErr(errors.KindLowerBoundGtUpper)
	}
	if lower.val == upper.val && lower.op == OpGt && upper.op == OpLt {
		return nil, errors.QueryErr(errors.KindDegenerateRange)
	}

	bindings, residual, err := bindKeyFields(d, quantum.Field, residual)
	if err != nil {
		return nil, err
	}

	filter, err := typeResidual(d, residual)
	if err != nil {
		return nil, err
	}

	where, err := buildKeys(d, quantum.Field, bindings, lower, upper, filter)
	if err != nil {
		return nil, err
	}

	subs, err := expand(d, sel, quantum, where, lower.val, upper.val, maxQuantaSpan)
	if err != nil {
		return nil, err
	}

	sel.Executable = true
	sel.DDL = d
	return subs, nil
}

// flattenAnd flattens right-associative and-chains into a list of leaves and
// or-subtrees. Or-trees stay nested.
func flattenAnd(e Expr) []Expr {
	if l, ok := e.(*Logical); ok && l.Op == OpAnd {
		return append(flattenAnd(l.Left), flattenAnd(l.Right)...)
	}
	return []Expr{e}
}

// extractBounds scans the working set for the quantum field's range bounds.
// Equality and inequality leaves on the quantum field stay as residual
// filters; any reference under an or-parent is an error.
func extractBounds(working []Expr, quantumField string) (bound, bound, []Expr, error) {
	var lower, upper bound
	var residual []Expr

	for _, item := range working {
		switch n := item.(type) {
		case *Compare:
			if n.Field != quantumField {
				residual = append(residual, n)
				continue
			}
			switch n.Op {
			case OpGt, OpGte:
				if lower.set {
					return bound{}, bound{}, nil, errors.QueryErr(errors.KindDuplicateLowerBound)
				}
				val, err := coerceTimestamp(n.Value)
				if err != nil {
					return bound{}, bound{}, nil, err
				}
				lower = bound{op: n.Op, val: val, set: true}
			case OpLt, OpLte:
				if upper.set {
					return bound{}, bound{}, nil, errors.QueryErr(errors.KindDuplicateUpperBound)
				}
				val, err := coerceTimestamp(n.Value)
				if err != nil {
					return bound{}, bound{}, nil, err
				}
				upper = bound{op: n.Op, val: val, set: true}
			default:
				// = / != on the quantum field are residual filters
				residual = append(residual, n)
			}
		case *Logical:
			// Only or-subtrees reach here; flattenAnd consumed the ands.
			if mentionsField(n, quantumField) {
				return bound{}, bound{}, nil, errors.QueryErr(errors.KindTimeBoundsMustUseAnd)
			}
			residual = append(residual, n)
		}
	}

	return lower, upper, residual, nil
}

// mentionsField reports whether any leaf of e references field.
func mentionsField(e Expr, field string) bool {
	switch n := e.(type) {
	case *Compare:
		return n.Field == field
	case *Logical:
		return mentionsField(n.Left, field) || mentionsField(n.Right, field)
	}
	return false
}

// bindKeyFields finds the equality binding for every non-quantum local-key
// field and removes it from the working set. A key field under any operator
// other than = is an error; an unbound key field is an error.
func bindKeyFields(d *ddl.DDL, quantumField string, working []Expr) (map[string]interface{}, []Expr, error) {
	bindings := make(map[string]interface{})

	for _, name := range d.LocalKey {
		if name == quantumField {
			continue
		}

		found := false
		rest := working[:0:0]
		for _, item := range working {
			leaf, ok := item.(*Compare)
			if !ok || leaf.Field != name {
				rest = append(rest, item)
				continue
			}
			if leaf.Op != OpEq {
				return nil, nil, errors.NewQueryError(errors.KindKeyFieldMustUseEq, "%s %s", name, leaf.Op)
			}
			if found {
				// Extra equality on a bound field is a residual filter.
				rest = append(rest, item)
				continue
			}
			bindings[name] = leaf.Value
			found = true
		}
		if !found {
			return nil, nil, errors.NewQueryError(errors.KindMissingKeyField, "%s", name)
		}
		working = rest
	}

	return bindings, working, nil
}

// typeResidual resolves field types for the surviving leaves and reassembles
// them as a right-associative and-joined tree. Or-subtrees are typed
// recursively.
func typeResidual(d *ddl.DDL, residual []Expr) (Expr, error) {
	for _, e := range residual {
		if err := typeExpr(d, e); err != nil {
			return nil, err
		}
	}

	var filter Expr
	for i := len(residual) - 1; i >= 0; i-- {
		if filter == nil {
			filter = residual[i]
		} else {
			filter = &Logical{Op: OpAnd, Left: residual[i], Right: filter}
		}
	}
	return filter, nil
}

func typeExpr(d *ddl.DDL, e Expr) error {
	switch n := e.(type) {
	case *Compare:
		ft, ok := d.FieldType(n.Field)
		if !ok {
			return errors.NewQueryError(errors.KindInvalidQuery, "unknown field %s", n.Field)
		}
		val, err := coerceValue(ft, n.Value)
		if err != nil {
			return errors.NewQueryError(errors.KindInvalidQuery, "field %s: %v", n.Field, err)
		}
		n.Type = ft
		n.Value = val
		return nil
	case *Logical:
		if err := typeExpr(d, n.Left); err != nil {
			return err
		}
		return typeExpr(d, n.Right)
	}
	return nil
}

// buildKeys emits the start and end key in local-key order and attaches the
// inclusivity flags derived from the bound operators.
func buildKeys(d *ddl.DDL, quantumField string, bindings map[string]interface{}, lower, upper bound, filter Expr) (Where, error) {
	w := Where{
		Filter:         filter,
		StartInclusive: lower.op != OpGt,
		EndInclusive:   upper.op == OpLte,
	}

	for _, name := range d.LocalKey {
		if name == quantumField {
			w.StartKey = append(w.StartKey, KeyCell{Field: name, Type: ddl.TypeTimestamp, Value: lower.val})
			w.EndKey = append(w.EndKey, KeyCell{Field: name, Type: ddl.TypeTimestamp, Value: upper.val})
			continue
		}
		ft, _ := d.FieldType(name)
		val, err := coerceValue(ft, bindings[name])
		if err != nil {
			return Where{}, errors.NewQueryError(errors.KindInvalidQuery, "field %s: %v", name, err)
		}
		w.StartKey = append(w.StartKey, KeyCell{Field: name, Type: ft, Value: val})
		w.EndKey = append(w.EndKey, KeyCell{Field: name, Type: ft, Value: val})
	}

	return w, nil
}

// expand walks the quantum boundaries strictly between lo and hi and emits
// one sub-query per window. The first keeps the original start inclusivity,
// the last the original end inclusivity; interior windows use the defaults.
func expand(d *ddl.DDL, sel *Select, quantum *ddl.Quantum, w Where, lo, hi int64, maxQuantaSpan int) ([]*SubQuery, error) {
	boundaries := quantum.Boundaries(lo, hi)
	k := 1 + len(boundaries)
	if maxQuantaSpan > 0 && k > maxQuantaSpan {
		return nil, errors.NewQueryError(errors.KindTooManySubQueries, "%d", k)
	}

	if k == 1 {
		return []*SubQuery{{Table: sel.Table, Columns: sel.Columns, Where: w, DDL: d}}, nil
	}

	edges := make([]int64, 0, k+1)
	edges = append(edges, lo)
	edges = append(edges, boundaries...)
	edges = append(edges, hi)

	subs := make([]*SubQuery, 0, k)
	for i := 0; i < k; i++ {
		sw := w
		sw.StartKey = withTimeValue(w.StartKey, quantum.Field, edges[i])
		sw.EndKey = withTimeValue(w.EndKey, quantum.Field, edges[i+1])
		if i > 0 {
			sw.StartInclusive = true
		}
		if i < k-1 {
			sw.EndInclusive = false
		}
		subs = append(subs, &SubQuery{Table: sel.Table, Columns: sel.Columns, Where: sw, DDL: d})
	}
	return subs, nil
}

// withTimeValue copies cells, replacing the quantum field's value.
func withTimeValue(cells []KeyCell, field string, val int64) []KeyCell {
	out := make([]KeyCell, len(cells))
	copy(out, cells)
	for i := range out {
		if out[i].Field == field {
			out[i].Value = val
		}
	}
	return out
}

func coerceTimestamp(v interface{}) (int64, error) {
	val, err := coerceValue(ddl.TypeTimestamp, v)
	if err != nil {
		return 0, errors.NewQueryError(errors.KindInvalidQuery, "time bound: %v", err)
	}
	return val.(int64), nil
}

// coerceValue normalises a literal to the Go representation of its declared
// type: string, int64, float64 or bool. Boolean literals are accepted
// case-insensitively as the strings "true"/"false". Integer-valued float64
// literals are accepted for sint64/timestamp because JSON decoding produces
// them.
func coerceValue(t ddl.FieldType, v interface{}) (interface{}, error) {
	switch t {
	case ddl.TypeVarchar:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case ddl.TypeSint64, ddl.TypeTimestamp:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case uint64:
			return int64(x), nil
		case float64:
			if x == float64(int64(x)) {
				return int64(x), nil
			}
		}
	case ddl.TypeDouble:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case int:
			return float64(x), nil
		}
	case ddl.TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			switch strings.ToLower(x) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
	}
	return nil, errors.NewQueryError(errors.KindInvalidQuery, "cannot use %v (%T) as %s", v, v, t)
}
