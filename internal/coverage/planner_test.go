package coverage

import (
	"bytes"
	"testing"

	"github.com/kartikbazzad/tskv/internal/ddl"
	"github.com/kartikbazzad/tskv/internal/errors"
	"github.com/kartikbazzad/tskv/internal/query"
	"github.com/kartikbazzad/tskv/internal/ring"
	"github.com/kartikbazzad/tskv/internal/storage"
)

func geoCheckin() *ddl.DDL {
	return &ddl.DDL{
		Table: "GeoCheckin",
		Fields: []ddl.Field{
			{Name: "location", Type: ddl.TypeVarchar},
			{Name: "user", Type: ddl.TypeVarchar},
			{Name: "time", Type: ddl.TypeTimestamp},
		},
		PartitionKey: []ddl.KeyComponent{
			{Param: "location"},
			{Param: "user"},
			{Quantum: &ddl.Quantum{Field: "time", N: 15, Unit: ddl.UnitSecond}},
		},
		LocalKey: []string{"location", "user", "time"},
	}
}

func subQuery(lo, hi int64) *query.SubQuery {
	return &query.SubQuery{
		Table:   "GeoCheckin",
		Columns: []string{"*"},
		DDL:     geoCheckin(),
		Where: query.Where{
			StartKey: []query.KeyCell{
				{Field: "location", Type: ddl.TypeVarchar, Value: "SF"},
				{Field: "user", Type: ddl.TypeVarchar, Value: "u"},
				{Field: "time", Type: ddl.TypeTimestamp, Value: lo},
			},
			EndKey: []query.KeyCell{
				{Field: "location", Type: ddl.TypeVarchar, Value: "SF"},
				{Field: "user", Type: ddl.TypeVarchar, Value: "u"},
				{Field: "time", Type: ddl.TypeTimestamp, Value: hi},
			},
			StartInclusive: true,
		},
	}
}

func TestPlan_PicksFirstPrimary(t *testing.T) {
	r := ring.New(16, []string{"a", "b", "c"})
	p := New(r)

	sub := subQuery(3000, 5000)
	plan, err := p.Plan(sub, "GeoCheckin", 3)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	key := storage.EncodeKeyCells([]query.KeyCell{
		{Field: "location", Type: ddl.TypeVarchar, Value: "SF"},
		{Field: "user", Type: ddl.TypeVarchar, Value: "u"},
		{Field: "time", Type: ddl.TypeTimestamp, Value: int64(0)}, // bucket base of 3000
	})
	want := r.PrimaryOwners(r.ChashKey("GeoCheckin", key), 3)[0]
	if plan.Node != want {
		t.Fatalf("Plan node: got %s, want %s", plan.Node, want)
	}
	if len(plan.Filters) != 0 {
		t.Fatalf("Plan filters must be empty, got %v", plan.Filters)
	}
}

func TestPlan_SameQuantumSameNode(t *testing.T) {
	r := ring.New(64, []string{"a", "b", "c", "d", "e"})
	p := New(r)

	// Two sub-queries inside the same quantum bucket hash identically
	p1, err := p.Plan(subQuery(3000, 5000), "GeoCheckin", 3)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	p2, err := p.Plan(subQuery(6000, 9000), "GeoCheckin", 3)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if p1.Node != p2.Node {
		t.Fatal("same bucket base must map to the same node")
	}

	// A sub-query in the next bucket may differ, but must still plan
	if _, err := p.Plan(subQuery(15000, 16000), "GeoCheckin", 3); err != nil {
		t.Fatalf("Plan next bucket: %v", err)
	}
}

func TestPlan_NoPrimaries(t *testing.T) {
	r := ring.New(16, []string{"a"})
	r.SetMemberDown("a", true)
	p := New(r)

	_, err := p.Plan(subQuery(3000, 5000), "GeoCheckin", 1)
	if err != errors.ErrNoPrimaries {
		t.Fatalf("Plan: got %v, want ErrNoPrimaries", err)
	}
}

func TestScanRange(t *testing.T) {
	sub := subQuery(3000, 5000)
	sub.Where.StartInclusive = false
	sub.Where.EndInclusive = true

	rng := ScanRange(sub)
	if rng.StartInclusive || !rng.EndInclusive {
		t.Fatal("inclusivity flags not carried into the scan range")
	}
	if bytes.Compare(rng.Start, rng.End) >= 0 {
		t.Fatal("encoded start must sort before encoded end")
	}
}
