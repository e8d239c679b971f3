package ring

import (
	"testing"
)

func TestChashKey_Deterministic(t *testing.T) {
	r := New(64, []string{"a", "b", "c"})

	idx1 := r.ChashKey("GeoCheckin", []byte("key-1"))
	idx2 := r.ChashKey("GeoCheckin", []byte("key-1"))
	if idx1 != idx2 {
		t.Fatalf("same key hashed differently: %d vs %d", idx1, idx2)
	}
	if idx1 >= 64 {
		t.Fatalf("index %d out of range", idx1)
	}
}

func TestChashKey_BucketSeparation(t *testing.T) {
	r := New(1024, []string{"a"})

	// The bucket participates in the hash: (b1, k) and (b2, k) should not
	// systematically collide.
	same := 0
	for _, k := range []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8"} {
		if r.ChashKey("t1", []byte(k)) == r.ChashKey("t2", []byte(k)) {
			same++
		}
	}
	if same == 8 {
		t.Fatal("bucket name has no effect on hashing")
	}
}

func TestPrimaryOwners_RingWalk(t *testing.T) {
	r := New(8, []string{"a", "b", "c", "d"})

	owners := r.PrimaryOwners(1, 3)
	want := []string{"b", "c", "d"}
	if len(owners) != 3 {
		t.Fatalf("got %d owners, want 3", len(owners))
	}
	for i := range want {
		if owners[i] != want[i] {
			t.Fatalf("owners: got %v, want %v", owners, want)
		}
	}

	// Walk wraps around the member list
	owners = r.PrimaryOwners(3, 2)
	if owners[0] != "d" || owners[1] != "a" {
		t.Fatalf("wrap: got %v, want [d a]", owners)
	}
}

func TestPrimaryOwners_DownMembersOmitted(t *testing.T) {
	r := New(8, []string{"a", "b", "c"})
	r.SetMemberDown("b", true)

	owners := r.PrimaryOwners(0, 3)
	for _, o := range owners {
		if o == "b" {
			t.Fatal("down member must not appear as primary")
		}
	}
	if len(owners) != 2 {
		t.Fatalf("got %d owners, want 2 (no fallback substitution)", len(owners))
	}

	r.SetMemberDown("b", false)
	if owners = r.PrimaryOwners(0, 3); len(owners) != 3 {
		t.Fatalf("after recovery: got %d owners, want 3", len(owners))
	}
}

func TestPrimaryOwners_AllDown(t *testing.T) {
	r := New(8, []string{"a"})
	r.SetMemberDown("a", true)
	if owners := r.PrimaryOwners(0, 1); len(owners) != 0 {
		t.Fatalf("got %v, want none", owners)
	}
}

func TestPrimaryOwners_NValCapped(t *testing.T) {
	r := New(8, []string{"a", "b"})
	owners := r.PrimaryOwners(0, 5)
	if len(owners) != 2 {
		t.Fatalf("got %d owners, want 2", len(owners))
	}
}
