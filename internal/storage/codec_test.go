package storage

import (
	"bytes"
	"testing"

	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/types"
)

func intCell(v int64) []query.KeyCell {
	return []query.KeyCell{{Field: "time", Type: ddl.TypeTimestamp, Value: v}}
}

func TestEncodeKeyCells_IntOrdering(t *testing.T) {
	values := []int64{-100000, -1, 0, 1, 3000, 15000, 1 << 40}
	for i := 1; i < len(values); i++ {
		a := EncodeKeyCells(intCell(values[i-1]))
		b := EncodeKeyCells(intCell(values[i]))
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("encoding of %d does not sort before %d", values[i-1], values[i])
		}
	}
}

func TestEncodeKeyCells_StringOrdering(t *testing.T) {
	values := []string{"", "a", "a\x00b", "ab", "b"}
	for i := 1; i < len(values); i++ {
		a := EncodeKeyCells([]query.KeyCell{{Field: "s", Type: ddl.TypeVarchar, Value: values[i-1]}})
		b := EncodeKeyCells([]query.KeyCell{{Field: "s", Type: ddl.TypeVarchar, Value: values[i]}})
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("encoding of %q does not sort before %q", values[i-1], values[i])
		}
	}
}

func TestEncodeKeyCells_DoubleOrdering(t *testing.T) {
	values := []float64{-1e10, -1.5, -0.0, 0.5, 2.0, 1e10}
	for i := 1; i < len(values); i++ {
		a := EncodeKeyCells([]query.KeyCell{{Field: "d", Type: ddl.TypeDouble, Value: values[i-1]}})
		b := EncodeKeyCells([]query.KeyCell{{Field: "d", Type: ddl.TypeDouble, Value: values[i]}})
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("encoding of %v does not sort before %v", values[i-1], values[i])
		}
	}
}

func TestEncodeKeyCells_CompositeOrdering(t *testing.T) {
	// Composite keys order by prefix first: the string terminator must keep
	// ("a", 9) before ("ab", 0).
	a := EncodeKeyCells([]query.KeyCell{
		{Field: "s", Type: ddl.TypeVarchar, Value: "a"},
		{Field: "t", Type: ddl.TypeTimestamp, Value: int64(9)},
	})
	b := EncodeKeyCells([]query.KeyCell{
		{Field: "s", Type: ddl.TypeVarchar, Value: "ab"},
		{Field: "t", Type: ddl.TypeTimestamp, Value: int64(0)},
	})
	if bytes.Compare(a, b) >= 0 {
		t.Fatal(`("a", 9) must sort before ("ab", 0)`)
	}
}

func TestRowCodec(t *testing.T) {
	row := types.Row{
		{Field: "location", Value: "San Francisco"},
		{Field: "user", Value: "user_1"},
		{Field: "time", Value: int64(3500)},
		{Field: "temperature", Value: 21.5},
		{Field: "indoors", Value: true},
		{Field: "weather", Value: nil},
	}

	decoded, err := DecodeRow(EncodeRow(row))
	if err != nil {
		t.Fatalf("DecodeRow: %v", err)
	}
	if len(decoded) != len(row) {
		t.Fatalf("got %d cells, want %d", len(decoded), len(row))
	}
	for i := range row {
		if decoded[i].Field != row[i].Field {
			t.Errorf("cell %d: field %s, want %s", i, decoded[i].Field, row[i].Field)
		}
		if decoded[i].Value != row[i].Value {
			t.Errorf("cell %d: value %v (%T), want %v (%T)",
				i, decoded[i].Value, decoded[i].Value, row[i].Value, row[i].Value)
		}
	}
}

func TestDecodeRow_Corrupt(t *testing.T) {
	cases := [][]byte{
		{},
		{0xFF},
		{0x02, 0x00},             // claims 2 cells, no data
		{0x01, 0x00, 0xFF, 0xFF}, // field length overruns
	}
	for _, data := range cases {
		if _, err := DecodeRow(data); err == nil {
			t.Errorf("DecodeRow(%v): want error", data)
		}
	}
}
