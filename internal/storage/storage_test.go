package storage

import (
	"bytes"
	"path/filepath"
	"testing"
)

func newTestStorage(t *testing.T) *FileStorage {
	t.Helper()
	root := t.TempDir()
	fs := New(
		filepath.Join(root, "pdfs"),
		filepath.Join(root, "pages"),
		filepath.Join(root, "crops"),
	)
	if err := fs.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	return fs
}

func TestSavePDFRoundTrips(t *testing.T) {
	fs := newTestStorage(t)
	data := []byte("%PDF-1.4 fake content")

	path, err := fs.SavePDF(data, 7, "My Report.pdf")
	if err != nil {
		t.Fatalf("SavePDF: %v", err)
	}

	got, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestSavePDFSanitizesFilename(t *testing.T) {
	fs := newTestStorage(t)
	path, err := fs.SavePDF([]byte("x"), 1, "../../etc/passwd; rm -rf.pdf")
	if err != nil {
		t.Fatalf("SavePDF: %v", err)
	}
	base := filepath.Base(path)
	if bytes.ContainsAny([]byte(base), "/; ") {
		t.Fatalf("sanitized filename still contains unsafe characters: %q", base)
	}
}

func TestSavePageAndGetPagePathAgree(t *testing.T) {
	fs := newTestStorage(t)
	data := []byte("png bytes")

	saved, err := fs.SavePage(data, 3, 2)
	if err != nil {
		t.Fatalf("SavePage: %v", err)
	}
	if saved != fs.GetPagePath(3, 2) {
		t.Fatalf("SavePage returned %q, GetPagePath returned %q", saved, fs.GetPagePath(3, 2))
	}
}

func TestSaveCropAndGetCropPathAgree(t *testing.T) {
	fs := newTestStorage(t)
	saved, err := fs.SaveCrop([]byte("crop bytes"), 3, 9)
	if err != nil {
		t.Fatalf("SaveCrop: %v", err)
	}
	if saved != fs.GetCropPath(3, 9) {
		t.Fatalf("SaveCrop returned %q, GetCropPath returned %q", saved, fs.GetCropPath(3, 9))
	}
}
