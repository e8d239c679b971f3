package table

import (
	"strings"

	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/query"
)

// Helper is the per-table helper module: field typing and query validation
// against one compiled schema.
type Helper struct {
	ddl   *ddl.DDL
	types map[string]ddl.FieldType
}

func newHelper(d *ddl.DDL) *Helper {
	types := make(map[string]ddl.FieldType, len(d.Fields))
	for _, f := range d.Fields {
		types[f.Name] = f.Type
	}
	return &Helper{ddl: d, types: types}
}

// GetDDL returns the table schema.
func (h *Helper) GetDDL() *ddl.DDL {
	return h.ddl
}

// FieldType returns the declared type of a field.
func (h *Helper) FieldType(name string) (ddl.FieldType, bool) {
	t, ok := h.types[name]
	return t, ok
}

// IsQueryValid checks a SELECT against the schema before compilation: the
// table must match, the projection must name existing columns, and a WHERE
// clause must be present. All reasons are collected.
func (h *Helper) IsQueryValid(sel *query.Select) error {
	var reasons []string

	if sel.Table != h.ddl.Table {
		reasons = append(reasons, "table name does not match schema")
	}
	for _, col := range sel.Columns {
		if col == "*" {
			continue
		}
		if _, ok := h.types[col]; !ok {
			reasons = append(reasons, "unknown column "+col)
		}
	}
	if sel.Where == nil {
		reasons = append(reasons, "missing WHERE clause")
	}

	if len(reasons) > 0 {
		return errors.NewQueryError(errors.KindInvalidQuery, "%s", strings.Join(reasons, "; "))
	}
	return nil
}
