package search

import "testing"

func TestFuseRRFOrdersByCombinedScore(t *testing.T) {
	keyword := []string{"v1", "v2", "v3"}
	semantic := []string{"v2", "v1", "v4"}

	fused := fuseRRF([][]string{keyword, semantic})

	if len(fused) != 4 {
		t.Fatalf("got %d fused ids, want 4", len(fused))
	}

	// v1 and v2 each appear in both lists at ranks {0,1} and {1,0}; their
	// combined score ties and should beat v3/v4 which appear only once.
	top := map[string]bool{fused[0].id: true, fused[1].id: true}
	if !top["v1"] || !top["v2"] {
		t.Fatalf("expected v1 and v2 to rank above v3/v4, got order %v", idsOf(fused))
	}
	// The tie is broken by first appearance: v1 is seen before v2.
	if fused[0].id != "v1" {
		t.Fatalf("expected tie broken by first appearance (v1 first), got order %v", idsOf(fused))
	}
}

func TestFuseRRFExactScoreFormula(t *testing.T) {
	fused := fuseRRF([][]string{{"only"}})
	if len(fused) != 1 {
		t.Fatalf("got %d results, want 1", len(fused))
	}
	want := 1.0 / float64(rrfK+0+1)
	if fused[0].score != want {
		t.Fatalf("got score %v, want %v", fused[0].score, want)
	}
}

func TestFuseRRFAccumulatesAcrossDuplicateLists(t *testing.T) {
	fused := fuseRRF([][]string{{"a", "b"}, {"a", "b"}})
	want := 2.0 / float64(rrfK+0+1)
	if fused[0].id != "a" || fused[0].score != want {
		t.Fatalf("got %+v, want id=a score=%v", fused[0], want)
	}
}

func TestFuseRRFEmptyListsYieldNoResults(t *testing.T) {
	fused := fuseRRF(nil)
	if len(fused) != 0 {
		t.Fatalf("got %d results, want 0", len(fused))
	}
}

func idsOf(fused []fusedID) []string {
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.id
	}
	return ids
}
