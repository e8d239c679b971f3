// Package ddl models the immutable schema of a time-series table: its
// columns, its partition key (trailing quantum component), and its local key.
//
// A DDL is created once by the table activation path and read-only
// thereafter; every consumer (compiler, planner, worker, helper module)
// shares the same value.
package ddl

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// FieldType is a column's scalar type.
type FieldType string

const (
	TypeVarchar   FieldType = "varchar"
	TypeSint64    FieldType = "sint64"
	TypeDouble    FieldType = "double"
	TypeTimestamp FieldType = "timestamp"
	TypeBoolean   FieldType = "boolean"
)

// MaxTableNameLen is the maximum allowed table name length in bytes.
const MaxTableNameLen = 64

// Field is one column definition.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
}

// KeyComponent is one partition-key component: either a direct field
// reference (Param) or a quantum function over a timestamp field.
type KeyComponent struct {
	Param   string
	Quantum *Quantum
}

// BaseField returns the field the component reads, for either variant.
func (kc KeyComponent) BaseField() string {
	if kc.Quantum != nil {
		return kc.Quantum.Field
	}
	return kc.Param
}

// DDL is the full table schema.
type DDL struct {
	Table        string
	Fields       []Field
	PartitionKey []KeyComponent
	LocalKey     []string
}

// FieldByName returns the named field definition.
func (d *DDL) FieldByName(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldType returns the declared type of the named field.
func (d *DDL) FieldType(name string) (FieldType, bool) {
	f, ok := d.FieldByName(name)
	return f.Type, ok
}

// Quantum returns the single quantum component of the partition key.
// Validate guarantees it exists and sits in the last slot.
func (d *DDL) Quantum() *Quantum {
	for _, kc := range d.PartitionKey {
		if kc.Quantum != nil {
			return kc.Quantum
		}
	}
	return nil
}

// ValidateTableName validates a table name to prevent path traversal and
// invalid characters. Rejects: empty, /, \, .., null byte, invalid UTF-8,
// and names exceeding MaxTableNameLen.
func ValidateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	if !utf8.ValidString(name) {
		return fmt.Errorf("table name must be valid UTF-8")
	}

	if len(name) > MaxTableNameLen {
		return fmt.Errorf("table name exceeds maximum length of %d bytes", MaxTableNameLen)
	}

	if strings.Contains(name, "/") {
		return fmt.Errorf("table name cannot contain '/'")
	}
	if strings.Contains(name, "\\") {
		return fmt.Errorf("table name cannot contain '\\'")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("table name cannot contain '..'")
	}

	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("table name cannot contain null bytes")
	}

	return nil
}

// Validate checks the structural invariants of the schema:
//   - exactly one quantum component per partition key, always in the last slot
//   - the local key is a superset of the partition key's direct fields and
//     ends with the quantum's base field
//   - key fields exist, are not nullable, and the quantum base is a timestamp
func (d *DDL) Validate() error {
	if err := ValidateTableName(d.Table); err != nil {
		return err
	}

	if len(d.Fields) == 0 {
		return fmt.Errorf("table %s has no fields", d.Table)
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("table %s has a field with no name", d.Table)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case TypeVarchar, TypeSint64, TypeDouble, TypeTimestamp, TypeBoolean:
		default:
			return fmt.Errorf("field %s has unknown type %q", f.Name, f.Type)
		}
	}

	if len(d.PartitionKey) == 0 {
		return fmt.Errorf("table %s has no partition key", d.Table)
	}
	quanta := 0
	for i, kc := range d.PartitionKey {
		if kc.Quantum != nil {
			quanta++
			if i != len(d.PartitionKey)-1 {
				return fmt.Errorf("quantum component must be the last partition key slot")
			}
			if err := kc.Quantum.validate(); err != nil {
				return err
			}
			f, ok := d.FieldByName(kc.Quantum.Field)
			if !ok {
				return fmt.Errorf("quantum field %s is not a column", kc.Quantum.Field)
			}
			if f.Type != TypeTimestamp {
				return fmt.Errorf("quantum field %s must be a timestamp, is %s", f.Name, f.Type)
			}
		} else {
			if _, ok := d.FieldByName(kc.Param); !ok {
				return fmt.Errorf("partition key field %s is not a column", kc.Param)
			}
		}
	}
	if quanta != 1 {
		return fmt.Errorf("partition key must have exactly one quantum component, has %d", quanta)
	}

	if len(d.LocalKey) == 0 {
		return fmt.Errorf("table %s has no local key", d.Table)
	}
	local := make(map[string]bool, len(d.LocalKey))
	for _, name := range d.LocalKey {
		f, ok := d.FieldByName(name)
		if !ok {
			return fmt.Errorf("local key field %s is not a column", name)
		}
		if f.Nullable {
			return fmt.Errorf("local key field %s cannot be nullable", name)
		}
		local[name] = true
	}
	for _, kc := range d.PartitionKey {
		if kc.Quantum == nil && !local[kc.Param] {
			return fmt.Errorf("local key must include partition key field %s", kc.Param)
		}
	}
	q := d.Quantum()
	if d.LocalKey[len(d.LocalKey)-1] != q.Field {
		return fmt.Errorf("local key must end with quantum field %s", q.Field)
	}

	return nil
}
