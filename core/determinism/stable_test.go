package determinism

import "testing"

func TestSortSliceKeepsTies(t *testing.T) {
	type pair struct {
		key   int
		label string
	}
	in := []pair{{2, "a"}, {1, "b"}, {2, "c"}, {1, "d"}, {0, "e"}}
	SortSlice(in, func(a, b pair) bool { return a.key < b.key })

	want := []string{"e", "b", "d", "a", "c"}
	for i, p := range in {
		if p.label != want[i] {
			t.Fatalf("position %d = %s, want %s (%v)", i, p.label, want[i], in)
		}
	}
}

func TestFingerprintIsStable(t *testing.T) {
	type req struct {
		Tenant string
		Items  map[string]int
	}
	a, err := Fingerprint("test", req{Tenant: "t1", Items: map[string]int{"x": 1, "y": 2}})
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	b, _ := Fingerprint("test", req{Tenant: "t1", Items: map[string]int{"y": 2, "x": 1}})
	if a != b {
		t.Fatalf("fingerprints differ: %s vs %s", a, b)
	}

	c, _ := Fingerprint("other", req{Tenant: "t1", Items: map[string]int{"x": 1, "y": 2}})
	if a == c {
		t.Fatal("namespace did not change the fingerprint")
	}
	if len(a) != 16 {
		t.Fatalf("fingerprint length = %d", len(a))
	}
}

func TestIDGeneratorSeparatesParts(t *testing.T) {
	g := NewIDGenerator("ns")
	if g.Generate("ab", "c") == g.Generate("a", "bc") {
		t.Fatal("part boundaries must affect the id")
	}
}
