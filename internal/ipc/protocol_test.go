package ipc

import (
	"bytes"
	"testing"

	"github.com/kartikbazzad/tskv/internal/query"
)

func TestRequestFrameRoundTrip(t *testing.T) {
	sel := &query.Select{
		Columns: []string{"weather"},
		Table:   "GeoCheckin",
		Where: &query.Logical{
			Op:    query.OpAnd,
			Left:  &query.Compare{Op: query.OpGt, Field: "time", Value: float64(3000)},
			Right: &query.Compare{Op: query.OpEq, Field: "user", Value: "u"},
		},
	}
	body, err := EncodeSelect(sel)
	if err != nil {
		t.Fatalf("EncodeSelect: %v", err)
	}

	frame := &RequestFrame{Command: CmdQuery, Body: body}
	frame.RequestID[0] = 0xAB

	var buf bytes.Buffer
	if err := WriteRequest(&buf, frame); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	got, err := ReadRequest(&buf)
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if got.Command != CmdQuery || got.RequestID != frame.RequestID {
		t.Fatalf("frame header mangled: %+v", got)
	}

	sel2, err := DecodeSelect(got.Body)
	if err != nil {
		t.Fatalf("DecodeSelect: %v", err)
	}
	if sel2.Table != "GeoCheckin" || len(sel2.Columns) != 1 {
		t.Fatalf("select mangled: %+v", sel2)
	}
	l, ok := sel2.Where.(*query.Logical)
	if !ok || l.Op != query.OpAnd {
		t.Fatalf("where tree mangled: %+v", sel2.Where)
	}
	leaf, ok := l.Left.(*query.Compare)
	if !ok || leaf.Op != query.OpGt || leaf.Field != "time" {
		t.Fatalf("left leaf mangled: %+v", l.Left)
	}
}

func TestResponseFrameRoundTrip(t *testing.T) {
	frame := &ResponseFrame{Status: StatusError, ErrCode: 1018, Body: []byte(`{"error":"x"}`)}

	var buf bytes.Buffer
	if err := WriteResponse(&buf, frame); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	got, err := ReadResponse(&buf)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if got.Status != StatusError || got.ErrCode != 1018 || string(got.Body) != `{"error":"x"}` {
		t.Fatalf("response mangled: %+v", got)
	}
}

func TestDecodeSelect_BadWhere(t *testing.T) {
	cases := []string{
		`{"columns":["*"],"table":"t","where":{"op":"and","lhs":{"op":"=","field":"a","value":1}}}`,
		`{"columns":["*"],"table":"t","where":{"op":"??","field":"a","value":1}}`,
		`not json`,
	}
	for _, body := range cases {
		if _, err := DecodeSelect([]byte(body)); err == nil {
			t.Errorf("DecodeSelect(%s): want error", body)
		}
	}
}
