package query

import (
	"github.com/kartikbazzad/tskv/internal/ddl"
)

// EvalFilter evaluates a typed residual filter against one decoded row,
// given as field -> value. A nil filter matches everything. Rows missing a
// referenced field do not match.
func EvalFilter(f Expr, row map[string]interface{}) bool {
	if f == nil {
		return true
	}
	switch n := f.(type) {
	case *Compare:
		val, ok := row[n.Field]
		if !ok || val == nil {
			return false
		}
		return compareCell(n.Type, n.Op, val, n.Value)
	case *Logical:
		if n.Op == OpAnd {
			return EvalFilter(n.Left, row) && EvalFilter(n.Right, row)
		}
		return EvalFilter(n.Left, row) || EvalFilter(n.Right, row)
	}
	return false
}

func compareCell(t ddl.FieldType, op Op, val, want interface{}) bool {
	switch t {
	case ddl.TypeVarchar:
		a, ok1 := val.(string)
		b, ok2 := want.(string)
		if !ok1 || !ok2 {
			return false
		}
		return cmpOrdered(op, compareStrings(a, b))
	case ddl.TypeSint64, ddl.TypeTimestamp:
		a, ok1 := toInt64(val)
		b, ok2 := toInt64(want)
		if !ok1 || !ok2 {
			return false
		}
		return cmpOrdered(op, compareInt64(a, b))
	case ddl.TypeDouble:
		a, ok1 := toFloat64(val)
		b, ok2 := toFloat64(want)
		if !ok1 || !ok2 {
			return false
		}
		return cmpOrdered(op, compareFloat64(a, b))
	case ddl.TypeBoolean:
		a, ok1 := val.(bool)
		b, ok2 := want.(bool)
		if !ok1 || !ok2 {
			return false
		}
		switch op {
		case OpEq:
			return a == b
		case OpNe:
			return a != b
		}
		return false
	}
	return false
}

func cmpOrdered(op Op, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	}
	return false
}

func compareStrings(a, b string) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareInt64(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareFloat64(a, b float64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}
