// Package query defines the statement AST handed to the core by the parser,
// and the query compiler that turns a SELECT into quantum-aligned
// sub-queries.
//
// Statements and WHERE operators are closed sums: the parser can only
// produce the variants defined here.
package query

import (
	"github.com/kartikbazzad/tskv/internal/ddl"
)

// Op is a WHERE-tree operator.
type Op string

const (
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpEq  Op = "="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// IsComparison reports whether op is a leaf comparison operator.
func (op Op) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Expr is a node in a WHERE tree: *Compare or *Logical.
type Expr interface {
	expr()
}

// Compare is a leaf comparison {op, field, value}. Type is unset until the
// compiler resolves it against the DDL.
type Compare struct {
	Op    Op
	Field string
	Value interface{}
	Type  ddl.FieldType
}

func (*Compare) expr() {}

// Logical is an and/or node over two subtrees.
type Logical struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (*Logical) expr() {}

// Statement is one parsed SQL statement: *Select, *Describe, *Insert or
// *CreateTable.
type Statement interface {
	stmt()
}

// Select is a parsed SELECT. Executable is false until Compile marks it and
// attaches the table's DDL; the key form of the WHERE is carried by the
// sub-queries Compile returns.
type Select struct {
	Columns []string // ["*"] selects all columns
	Table   string
	Where   Expr

	Executable bool
	DDL        *ddl.DDL
}

func (*Select) stmt() {}

// Describe asks for the schema of a table.
type Describe struct {
	Table string
}

func (*Describe) stmt() {}

// Insert is a parsed INSERT. When Columns is empty the values are positional
// over the full field list.
type Insert struct {
	Table   string
	Columns []string
	Rows    [][]interface{}
}

func (*Insert) stmt() {}

// CreateTable carries an already-validated table definition.
type CreateTable struct {
	DDL *ddl.DDL
}

func (*CreateTable) stmt() {}

// KeyCell is one typed (field, type, value) element of a start or end key.
type KeyCell struct {
	Field string
	Type  ddl.FieldType
	Value interface{}
}

// Where is a compiled WHERE clause: a full local-key range over one quantum
// window plus a residual filter over non-key fields.
//
// Inclusivity defaults: start inclusive, end exclusive.
type Where struct {
	StartKey       []KeyCell
	EndKey         []KeyCell
	Filter         Expr
	StartInclusive bool
	EndInclusive   bool
}

// SubQuery is an executable SELECT whose time range lies entirely within one
// quantum bucket.
type SubQuery struct {
	Table   string
	Columns []string
	Where   Where
	DDL     *ddl.DDL
}
