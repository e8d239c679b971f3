package ddl

import (
	"testing"
)

func geoCheckin() *DDL {
	return &DDL{
		Table: "GeoCheckin",
		Fields: []Field{
			{Name: "location", Type: TypeVarchar},
			{Name: "user", Type: TypeVarchar},
			{Name: "time", Type: TypeTimestamp},
			{Name: "weather", Type: TypeVarchar, Nullable: true},
			{Name: "temperature", Type: TypeDouble, Nullable: true},
		},
		PartitionKey: []KeyComponent{
			{Param: "location"},
			{Param: "user"},
			{Quantum: &Quantum{Field: "time", N: 15, Unit: UnitSecond}},
		},
		LocalKey: []string{"location", "user", "time"},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := geoCheckin().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_QuantumNotLast(t *testing.T) {
	d := geoCheckin()
	d.PartitionKey = []KeyComponent{
		{Quantum: &Quantum{Field: "time", N: 15, Unit: UnitSecond}},
		{Param: "location"},
		{Param: "user"},
	}
	if err := d.Validate(); err == nil {
		t.Fatal("want error for quantum not in last slot")
	}
}

func TestValidate_NoQuantum(t *testing.T) {
	d := geoCheckin()
	d.PartitionKey = []KeyComponent{{Param: "location"}, {Param: "user"}}
	if err := d.Validate(); err == nil {
		t.Fatal("want error for missing quantum")
	}
}

func TestValidate_TwoQuanta(t *testing.T) {
	d := geoCheckin()
	d.Fields = append(d.Fields, Field{Name: "time2", Type: TypeTimestamp})
	d.PartitionKey = []KeyComponent{
		{Param: "location"},
		{Quantum: &Quantum{Field: "time2", N: 1, Unit: UnitMinute}},
		{Quantum: &Quantum{Field: "time", N: 15, Unit: UnitSecond}},
	}
	if err := d.Validate(); err == nil {
		t.Fatal("want error for two quantum components")
	}
}

func TestValidate_LocalKeyMissingPartitionField(t *testing.T) {
	d := geoCheckin()
	d.LocalKey = []string{"user", "time"}
	if err := d.Validate(); err == nil {
		t.Fatal("want error: local key must include partition key fields")
	}
}

func TestValidate_LocalKeyQuantumNotLast(t *testing.T) {
	d := geoCheckin()
	d.LocalKey = []string{"location", "time", "user"}
	if err := d.Validate(); err == nil {
		t.Fatal("want error: local key must end with quantum field")
	}
}

func TestValidate_NullableKeyField(t *testing.T) {
	d := geoCheckin()
	d.Fields[0].Nullable = true
	if err := d.Validate(); err == nil {
		t.Fatal("want error for nullable key field")
	}
}

func TestValidate_QuantumFieldNotTimestamp(t *testing.T) {
	d := geoCheckin()
	d.Fields[2].Type = TypeSint64
	if err := d.Validate(); err == nil {
		t.Fatal("want error for non-timestamp quantum field")
	}
}

func TestValidate_BadTableName(t *testing.T) {
	for _, name := range []string{"", "a/b", "a\\b", "a..b", "a\x00b"} {
		d := geoCheckin()
		d.Table = name
		if err := d.Validate(); err == nil {
			t.Errorf("table name %q should be rejected", name)
		}
	}
}

func TestQuantum_SizeMillis(t *testing.T) {
	cases := []struct {
		q    Quantum
		want int64
	}{
		{Quantum{N: 15, Unit: UnitSecond}, 15_000},
		{Quantum{N: 10, Unit: UnitMinute}, 600_000},
		{Quantum{N: 2, Unit: UnitHour}, 7_200_000},
		{Quantum{N: 1, Unit: UnitDay}, 86_400_000},
	}
	for _, c := range cases {
		if got := c.q.SizeMillis(); got != c.want {
			t.Errorf("SizeMillis(%d%s): got %d, want %d", c.q.N, c.q.Unit, got, c.want)
		}
	}
}

func TestQuantum_BucketBase(t *testing.T) {
	q := Quantum{Field: "time", N: 15, Unit: UnitSecond}
	cases := []struct {
		ts, want int64
	}{
		{0, 0},
		{3000, 0},
		{15000, 15000},
		{29999, 15000},
		{30000, 30000},
		{-1, -15000},
	}
	for _, c := range cases {
		if got := q.BucketBase(c.ts); got != c.want {
			t.Errorf("BucketBase(%d): got %d, want %d", c.ts, got, c.want)
		}
	}
}

func TestQuantum_Boundaries(t *testing.T) {
	q := Quantum{Field: "time", N: 15, Unit: UnitSecond}

	// Single window: no boundaries
	if b := q.Boundaries(3000, 5000); len(b) != 0 {
		t.Fatalf("Boundaries(3000, 5000): got %v, want none", b)
	}

	// Three windows: boundaries at 15000 and 30000
	b := q.Boundaries(3000, 31000)
	if len(b) != 2 || b[0] != 15000 || b[1] != 30000 {
		t.Fatalf("Boundaries(3000, 31000): got %v, want [15000 30000]", b)
	}

	// Range starting on a boundary: the start is not a boundary
	b = q.Boundaries(15000, 31000)
	if len(b) != 1 || b[0] != 30000 {
		t.Fatalf("Boundaries(15000, 31000): got %v, want [30000]", b)
	}
}

func TestFromJSON_RoundTrip(t *testing.T) {
	src := `{
		"table": "GeoCheckin",
		"fields": [
			{"name": "location", "type": "varchar"},
			{"name": "user", "type": "varchar"},
			{"name": "time", "type": "timestamp"},
			{"name": "weather", "type": "varchar", "nullable": true}
		],
		"partition_key": [
			{"param": "location"},
			{"param": "user"},
			{"quantum": {"field": "time", "n": 15, "unit": "s"}}
		],
		"local_key": ["location", "user", "time"]
	}`

	d, err := FromJSON([]byte(src))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if d.Table != "GeoCheckin" || len(d.Fields) != 4 {
		t.Fatalf("unexpected ddl: %+v", d)
	}
	q := d.Quantum()
	if q == nil || q.Field != "time" || q.N != 15 || q.Unit != UnitSecond {
		t.Fatalf("unexpected quantum: %+v", q)
	}

	out, err := d.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	d2, err := FromJSON(out)
	if err != nil {
		t.Fatalf("FromJSON(ToJSON): %v", err)
	}
	if d2.Table != d.Table || len(d2.Fields) != len(d.Fields) {
		t.Fatal("round trip changed the schema")
	}
}

func TestFromJSON_Invalid(t *testing.T) {
	cases := []string{
		`{}`,
		`{"table": "t", "fields": [], "partition_key": [], "local_key": []}`,
		`{"table": "t", "fields": [{"name": "x", "type": "blob"}],
		  "partition_key": [{"param": "x"}], "local_key": ["x"]}`,
		`not json`,
	}
	for _, src := range cases {
		if _, err := FromJSON([]byte(src)); err == nil {
			t.Errorf("FromJSON(%s): want error", src)
		}
	}
}
