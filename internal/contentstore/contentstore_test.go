package contentstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alpinesboltltd/docwell/internal/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndFindDocumentByHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateDocument(ctx, "hash-1", "report.pdf")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	doc, err := store.FindDocumentByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("FindDocumentByHash: %v", err)
	}
	if doc.ID != id || doc.Filename != "report.pdf" {
		t.Fatalf("got %+v, want id=%d filename=report.pdf", doc, id)
	}

	missing, err := store.FindDocumentByHash(ctx, "no-such-hash")
	if err != nil {
		t.Fatalf("FindDocumentByHash for missing hash: %v", err)
	}
	if missing != nil {
		t.Fatalf("got %+v, want nil for unknown hash", missing)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetDocument(context.Background(), 9999)
	if err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestGetPageByNum(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, err := store.CreateDocument(ctx, "hash-2", "doc.pdf")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	pageID, err := store.CreatePage(ctx, docID, 3, "/pages/3.png")
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	page, err := store.GetPageByNum(ctx, docID, 3)
	if err != nil {
		t.Fatalf("GetPageByNum: %v", err)
	}
	if page.ID != pageID {
		t.Fatalf("got page id %d, want %d", page.ID, pageID)
	}

	if _, err := store.GetPageByNum(ctx, docID, 99); err == nil {
		t.Fatalf("expected not-found error for missing page number")
	}
}

func TestGetRegion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, _ := store.CreateDocument(ctx, "hash-3", "doc.pdf")
	pageID, _ := store.CreatePage(ctx, docID, 1, "/pages/1.png")
	box := entity.Region{Y0: 10, X0: 20, Y1: 110, X1: 220}
	regionID, err := store.CreateRegion(ctx, pageID, docID, "figure 1", box, "")
	if err != nil {
		t.Fatalf("CreateRegion: %v", err)
	}

	region, err := store.GetRegion(ctx, docID, regionID)
	if err != nil {
		t.Fatalf("GetRegion: %v", err)
	}
	if region.Label != "figure 1" || region.Y0 != 10 || region.X1 != 220 {
		t.Fatalf("got %+v, want label=figure 1 box (10,20,110,220)", region)
	}
	if region.VectorID != nil {
		t.Fatalf("expected nil vector id before SetRegionVectorID, got %v", *region.VectorID)
	}

	if _, err := store.GetRegion(ctx, docID, 9999); err == nil {
		t.Fatalf("expected not-found error for missing region")
	}
}

func TestSearchTextChunksFTSRanksBestMatchFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, _ := store.CreateDocument(ctx, "hash-4", "doc.pdf")
	pageID, _ := store.CreatePage(ctx, docID, 1, "")

	chunkA, _ := store.CreateTextChunk(ctx, pageID, docID, 0, "mountain hiking trails and gear")
	chunkB, _ := store.CreateTextChunk(ctx, pageID, docID, 1, "mountain mountain mountain biking and mountain trails")
	if err := store.SetTextChunkVectorID(ctx, chunkA, "vec-a"); err != nil {
		t.Fatalf("SetTextChunkVectorID a: %v", err)
	}
	if err := store.SetTextChunkVectorID(ctx, chunkB, "vec-b"); err != nil {
		t.Fatalf("SetTextChunkVectorID b: %v", err)
	}

	hits, err := store.SearchTextChunksFTS(ctx, "mountain", 10)
	if err != nil {
		t.Fatalf("SearchTextChunksFTS: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].VectorID != "vec-b" {
		t.Fatalf("got top hit %q, want vec-b (denser keyword match)", hits[0].VectorID)
	}
}

func TestSearchTextChunksFTSSkipsChunksWithoutVectorID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, _ := store.CreateDocument(ctx, "hash-5", "doc.pdf")
	pageID, _ := store.CreatePage(ctx, docID, 1, "")
	if _, err := store.CreateTextChunk(ctx, pageID, docID, 0, "unembedded text about glaciers"); err != nil {
		t.Fatalf("CreateTextChunk: %v", err)
	}

	hits, err := store.SearchTextChunksFTS(ctx, "glaciers", 10)
	if err != nil {
		t.Fatalf("SearchTextChunksFTS: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits, want 0 since chunk has no vector_id yet", len(hits))
	}
}

func TestSearchRegionsByLabelCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, _ := store.CreateDocument(ctx, "hash-6", "doc.pdf")
	pageID, _ := store.CreatePage(ctx, docID, 1, "")
	box := entity.Region{Y0: 0, X0: 0, Y1: 10, X1: 10}
	regionID, _ := store.CreateRegion(ctx, pageID, docID, "Figure 2: Elevation Chart", box, "")
	if err := store.SetRegionVectorID(ctx, regionID, "vec-region"); err != nil {
		t.Fatalf("SetRegionVectorID: %v", err)
	}

	hits, err := store.SearchRegionsByLabel(ctx, "elevation", 10)
	if err != nil {
		t.Fatalf("SearchRegionsByLabel: %v", err)
	}
	if len(hits) != 1 || hits[0].VectorID != "vec-region" {
		t.Fatalf("got %+v, want a single hit for vec-region", hits)
	}
}

func TestResolveByVectorIDsJoinsTextAndRegionsInTwoQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, _ := store.CreateDocument(ctx, "hash-7", "atlas.pdf")
	pageID, _ := store.CreatePage(ctx, docID, 5, "")

	chunkID, _ := store.CreateTextChunk(ctx, pageID, docID, 0, "a long passage about river deltas")
	store.SetTextChunkVectorID(ctx, chunkID, "vec-text")

	box := entity.Region{Y0: 0, X0: 0, Y1: 50, X1: 50}
	regionID, _ := store.CreateRegion(ctx, pageID, docID, "delta map", box, "")
	store.SetRegionVectorID(ctx, regionID, "vec-image")

	hits, err := store.ResolveByVectorIDs(ctx, []string{"vec-text", "vec-image", "vec-missing"})
	if err != nil {
		t.Fatalf("ResolveByVectorIDs: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2 (missing id should be silently absent)", len(hits))
	}

	textHit := hits["vec-text"]
	if textHit.ResultType != "text" || textHit.DocumentTitle != "atlas.pdf" || textHit.PageNum != 5 {
		t.Fatalf("got %+v, want text hit joined to atlas.pdf page 5", textHit)
	}
	if textHit.ChunkID == nil || *textHit.ChunkID != chunkID {
		t.Fatalf("got chunk id %v, want %d", textHit.ChunkID, chunkID)
	}

	imageHit := hits["vec-image"]
	if imageHit.ResultType != "image" || imageHit.Snippet != "delta map" {
		t.Fatalf("got %+v, want image hit with snippet 'delta map'", imageHit)
	}
	if imageHit.RegionID == nil || *imageHit.RegionID != regionID {
		t.Fatalf("got region id %v, want %d", imageHit.RegionID, regionID)
	}
}

func TestResolveByVectorIDsEmptyInput(t *testing.T) {
	store := newTestStore(t)
	hits, err := store.ResolveByVectorIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("ResolveByVectorIDs: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("got %d hits, want 0", len(hits))
	}
}

func TestDeleteDocumentCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docID, _ := store.CreateDocument(ctx, "hash-8", "doomed.pdf")
	pageID, _ := store.CreatePage(ctx, docID, 1, "")
	if _, err := store.CreateTextChunk(ctx, pageID, docID, 0, "some text"); err != nil {
		t.Fatalf("CreateTextChunk: %v", err)
	}

	if err := store.DeleteDocument(ctx, docID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, err := store.GetDocument(ctx, docID); err == nil {
		t.Fatalf("expected document to be gone after delete")
	}
	pages, err := store.ListPages(ctx, docID)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(pages) != 0 {
		t.Fatalf("got %d pages, want 0 after cascading delete", len(pages))
	}
}
