package parser

import (
	"testing"

	"github.com/kartikbazzad/tskv/internal/query"
)

func TestParse_Select(t *testing.T) {
	stmt, err := Parse(`SELECT weather FROM GeoCheckin WHERE time > 3000 AND time < 5000 AND user = 'user_1' AND location = 'San Francisco'`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel, ok := stmt.(*query.Select)
	if !ok {
		t.Fatalf("got %T, want *query.Select", stmt)
	}
	if sel.Table != "GeoCheckin" || len(sel.Columns) != 1 || sel.Columns[0] != "weather" {
		t.Fatalf("select head: %+v", sel)
	}

	// AND chains are right-associative
	l1, ok := sel.Where.(*query.Logical)
	if !ok || l1.Op != query.OpAnd {
		t.Fatalf("where root: %+v", sel.Where)
	}
	leaf, ok := l1.Left.(*query.Compare)
	if !ok || leaf.Field != "time" || leaf.Op != query.OpGt || leaf.Value != int64(3000) {
		t.Fatalf("first leaf: %+v", l1.Left)
	}

	// Walk to the last leaf
	node := l1.Right
	for {
		l, ok := node.(*query.Logical)
		if !ok {
			break
		}
		node = l.Right
	}
	last, ok := node.(*query.Compare)
	if !ok || last.Field != "location" || last.Value != "San Francisco" {
		t.Fatalf("last leaf: %+v", node)
	}
}

func TestParse_SelectStar(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM t WHERE a >= 1 AND b <= 2;`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel := stmt.(*query.Select)
	if len(sel.Columns) != 1 || sel.Columns[0] != "*" {
		t.Fatalf("columns: %v", sel.Columns)
	}
}

func TestParse_SelectOrParenthesised(t *testing.T) {
	stmt, err := Parse(`SELECT a FROM t WHERE (x = 1 OR y = 2) AND z != 'q''s'`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	sel := stmt.(*query.Select)
	root := sel.Where.(*query.Logical)
	if root.Op != query.OpAnd {
		t.Fatalf("root op: %s", root.Op)
	}
	orNode, ok := root.Left.(*query.Logical)
	if !ok || orNode.Op != query.OpOr {
		t.Fatalf("left: %+v", root.Left)
	}
	leaf := root.Right.(*query.Compare)
	if leaf.Op != query.OpNe || leaf.Value != "q's" {
		t.Fatalf("escaped quote: %+v", leaf)
	}
}

func TestParse_Describe(t *testing.T) {
	stmt, err := Parse("DESCRIBE GeoCheckin")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	d, ok := stmt.(*query.Describe)
	if !ok || d.Table != "GeoCheckin" {
		t.Fatalf("got %+v", stmt)
	}
}

func TestParse_Insert(t *testing.T) {
	stmt, err := Parse(`INSERT INTO GeoCheckin (location, user, time) VALUES ('SF', 'u', 3500), ('SF', 'u', 4000)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ins, ok := stmt.(*query.Insert)
	if !ok {
		t.Fatalf("got %T", stmt)
	}
	if len(ins.Columns) != 3 || len(ins.Rows) != 2 {
		t.Fatalf("insert shape: %+v", ins)
	}
	if ins.Rows[1][2] != int64(4000) {
		t.Fatalf("row values: %+v", ins.Rows[1])
	}
}

func TestParse_InsertLiterals(t *testing.T) {
	stmt, err := Parse(`INSERT INTO t VALUES ('s', -42, 2.5, true, false)`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	row := stmt.(*query.Insert).Rows[0]
	if row[0] != "s" || row[1] != int64(-42) || row[2] != 2.5 || row[3] != true || row[4] != false {
		t.Fatalf("literals: %+v", row)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []string{
		"",
		"DROP TABLE t",
		"SELECT FROM t",
		"SELECT a FROM",
		"SELECT a FROM t WHERE",
		"SELECT a FROM t WHERE a >",
		"SELECT a FROM t WHERE a > 'unterminated",
		"INSERT INTO t VALUES",
		"INSERT INTO t VALUES (1",
		"DESCRIBE",
	}
	for _, src := range cases {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q): want error", src)
		}
	}
}
