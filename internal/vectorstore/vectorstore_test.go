package vectorstore

import (
	"context"
	"testing"
)

func TestMemoryStoreSearchRanksByCosineSimilarity(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	err := store.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		},
		[]Metadata{{"kind": "a"}, {"kind": "b"}, {"kind": "c"}},
	)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := store.Search(ctx, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "a" {
		t.Fatalf("got top result %q, want %q", results[0].ID, "a")
	}
	if results[1].ID != "c" {
		t.Fatalf("got second result %q, want %q", results[1].ID, "c")
	}
	if results[0].Score < results[1].Score {
		t.Fatalf("results not sorted: %v", results)
	}
}

func TestMemoryStoreSearchAppliesFilter(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	err := store.Add(ctx,
		[]string{"x", "y"},
		[][]float32{{1, 0}, {1, 0}},
		[]Metadata{{"doc": "1"}, {"doc": "2"}},
	)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	results, err := store.Search(ctx, []float32{1, 0}, 10, Metadata{"doc": "2"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "y" {
		t.Fatalf("got %v, want only id y", results)
	}
}

func TestMemoryStoreAddRejectsDimensionMismatch(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	err := store.Add(ctx, []string{"a"}, [][]float32{{1, 2}}, []Metadata{{}})
	if err == nil {
		t.Fatalf("expected error for mismatched dimension")
	}
}

func TestMemoryStoreAddUpsertsExistingID(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	if err := store.Add(ctx, []string{"a"}, [][]float32{{1, 0}}, []Metadata{{"v": 1}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(ctx, []string{"a"}, [][]float32{{0, 1}}, []Metadata{{"v": 2}}); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	results, err := store.Search(ctx, []float32{0, 1}, 10, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (upsert should not duplicate)", len(results))
	}
	if results[0].Score < 0.99 {
		t.Fatalf("expected near-perfect match after upsert, got score %f", results[0].Score)
	}
}
