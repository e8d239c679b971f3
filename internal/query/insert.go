package query

import (
	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/types"
)

// ValidateInsert checks an INSERT against the schema and normalises its rows
// into full-width rows in DDL field order. Missing nullable fields become
// null cells; missing key or non-nullable fields are an error.
func ValidateInsert(d *ddl.DDL, ins *Insert) ([]types.Row, error) {
	columns := ins.Columns
	if len(columns) == 0 {
		columns = make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			columns = append(columns, f.Name)
		}
	}
	for _, col := range columns {
		if _, ok := d.FieldByName(col); !ok {
			return nil, errors.NewQueryError(errors.KindInvalidQuery, "unknown column %s", col)
		}
	}

	rows := make([]types.Row, 0, len(ins.Rows))
	for _, vals := range ins.Rows {
		if len(vals) != len(columns) {
			return nil, errors.NewQueryError(errors.KindInvalidQuery,
				"row has %d values, want %d", len(vals), len(columns))
		}

		byName := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			byName[col] = vals[i]
		}

		row := make(types.Row, 0, len(d.Fields))
		for _, f := range d.Fields {
			v, present := byName[f.Name]
			if !present || v == nil {
				if !f.Nullable {
					return nil, errors.NewQueryError(errors.KindInvalidQuery,
						"field %s cannot be null", f.Name)
				}
				row = append(row, types.Cell{Field: f.Name, Value: nil})
				continue
			}
			coerced, err := coerceValue(f.Type, v)
			if err != nil {
				return nil, errors.NewQueryError(errors.KindInvalidQuery,
					"field %s: %v", f.Name, err)
			}
			row = append(row, types.Cell{Field: f.Name, Value: coerced})
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// LocalKeyCells extracts a row's local key as typed cells in local-key order.
func LocalKeyCells(d *ddl.DDL, row types.Row) ([]KeyCell, error) {
	byName := make(map[string]interface{}, len(row))
	for _, c := range row {
		byName[c.Field] = c.Value
	}

	cells := make([]KeyCell, 0, len(d.LocalKey))
	for _, name := range d.LocalKey {
		v, ok := byName[name]
		if !ok || v == nil {
			return nil, errors.NewQueryError(errors.KindInvalidQuery, "key field %s is null", name)
		}
		ft, _ := d.FieldType(name)
		cells = append(cells, KeyCell{Field: name, Type: ft, Value: v})
	}
	return cells, nil
}

// PartitionKeyCells extracts a row's partition key in partition-key order,
// with the quantum component rounded down to its bucket base.
func PartitionKeyCells(d *ddl.DDL, row types.Row) ([]KeyCell, error) {
	byName := make(map[string]interface{}, len(row))
	for _, c := range row {
		byName[c.Field] = c.Value
	}

	cells := make([]KeyCell, 0, len(d.PartitionKey))
	for _, kc := range d.PartitionKey {
		name := kc.BaseField()
		v, ok := byName[name]
		if !ok || v == nil {
			return nil, errors.NewQueryError(errors.KindInvalidQuery, "key field %s is null", name)
		}
		ft, _ := d.FieldType(name)
		if kc.Quantum != nil {
			ts, okTs := toInt64(v)
			if !okTs {
				return nil, errors.NewQueryError(errors.KindInvalidQuery, "field %s is not a timestamp", name)
			}
			cells = append(cells, KeyCell{Field: name, Type: ft, Value: kc.Quantum.BucketBase(ts)})
			continue
		}
		cells = append(cells, KeyCell{Field: name, Type: ft, Value: v})
	}
	return cells, nil
}
