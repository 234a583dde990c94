package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/alpinesboltltd/docwell/internal/contentstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContentStore(t *testing.T) *contentstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.db")
	store, err := contentstore.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("contentstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newDocumentsRouter(content *contentstore.Store) *gin.Engine {
	h := NewDocumentsHandler(content)
	r := gin.New()
	r.GET("/documents", h.ListDocuments)
	r.GET("/documents/:id", h.GetDocument)
	r.GET("/documents/:id/pages/:n/regions", h.ListPageRegions)
	return r
}

func TestListDocumentsEmpty(t *testing.T) {
	content := newTestContentStore(t)
	router := newDocumentsRouter(content)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var body struct {
		Documents []any `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Documents) != 0 {
		t.Fatalf("got %d documents, want 0", len(body.Documents))
	}
}

func TestListDocumentsAppliesLimitAndOffset(t *testing.T) {
	content := newTestContentStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := content.CreateDocument(ctx, "hash-"+strconv.Itoa(i), "doc.pdf"); err != nil {
			t.Fatalf("CreateDocument: %v", err)
		}
	}

	router := newDocumentsRouter(content)
	req := httptest.NewRequest(http.MethodGet, "/documents?limit=2&offset=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Documents []any `json:"documents"`
		Total     int   `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Documents) != 2 {
		t.Fatalf("got %d documents, want 2 (limit applied)", len(body.Documents))
	}
	if body.Total != 5 {
		t.Fatalf("got total %d, want 5", body.Total)
	}
}

func TestGetDocumentNotFoundReturns404(t *testing.T) {
	content := newTestContentStore(t)
	router := newDocumentsRouter(content)

	req := httptest.NewRequest(http.MethodGet, "/documents/12345", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestGetDocumentInvalidIDReturns400(t *testing.T) {
	content := newTestContentStore(t)
	router := newDocumentsRouter(content)

	req := httptest.NewRequest(http.MethodGet, "/documents/not-a-number", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestGetDocumentReturnsPages(t *testing.T) {
	content := newTestContentStore(t)
	ctx := context.Background()

	docID, err := content.CreateDocument(ctx, "hash-x", "manual.pdf")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if _, err := content.CreatePage(ctx, docID, 1, "/pages/1.png"); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	router := newDocumentsRouter(content)
	req := httptest.NewRequest(http.MethodGet, "/documents/"+strconv.FormatInt(docID, 10), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	var body struct {
		Filename string `json:"filename"`
		Pages    []any  `json:"pages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Filename != "manual.pdf" {
		t.Fatalf("got filename %q, want manual.pdf", body.Filename)
	}
	if len(body.Pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(body.Pages))
	}
}

func TestListPageRegionsUnknownPageReturns404(t *testing.T) {
	content := newTestContentStore(t)
	ctx := context.Background()
	docID, _ := content.CreateDocument(ctx, "hash-y", "doc.pdf")

	router := newDocumentsRouter(content)
	req := httptest.NewRequest(http.MethodGet, "/documents/"+strconv.FormatInt(docID, 10)+"/pages/7/regions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}
