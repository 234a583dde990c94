// Package contentstore is the relational store of documents, pages, text
// chunks, and detected regions, with an FTS5 index over chunk text kept in
// sync via triggers. It is backed by a single SQLite file in WAL mode so
// the ingest pipeline (writer) and the HTTP service (reader) can run
// concurrently against it.
package contentstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/alpinesboltltd/docwell/internal/entity"
	apperrors "github.com/alpinesboltltd/docwell/internal/errors"
)

// Store wraps a SQLite database holding the content schema. *sql.DB is
// already safe for concurrent use; no additional locking is layered on
// top of it here.
type Store struct {
	db   *sql.DB
	path string
}

// dbExecer abstracts the methods needed to run writes and point lookups
// against either a *sql.DB or a *sql.Tx, so every write method below can
// be shared between the autocommit Store and a transaction-bound Tx
// instead of being duplicated.
type dbExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is a content store transaction. The ingest pipeline opens one per
// document so that a Document row, its Pages, TextChunks, and Regions
// either all land together or none do.
type Tx struct {
	tx *sql.Tx
}

// BeginTx starts a new content store transaction. Callers must Commit or
// Rollback it; Rollback on an already-committed Tx is a no-op that
// returns nil.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "begin transaction")
	}
	return &Tx{tx: tx}, nil
}

// Commit finalizes every write made through the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return apperrors.WrapDatabaseError(err, "commit transaction")
	}
	return nil
}

// Rollback discards every write made through the transaction. It is
// safe to call after a successful Commit; sql.ErrTxDone is swallowed
// since callers typically defer Rollback unconditionally after Commit.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return apperrors.WrapDatabaseError(err, "rollback transaction")
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  file_hash    TEXT NOT NULL UNIQUE,
  filename     TEXT NOT NULL,
  total_pages  INTEGER NOT NULL DEFAULT 0,
  storage_path TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pages (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  document_id  INTEGER NOT NULL,
  page_num     INTEGER NOT NULL,
  image_path   TEXT NOT NULL DEFAULT '',
  ocr_text     TEXT NOT NULL DEFAULT '',
  ocr_metadata TEXT NOT NULL DEFAULT '',
  UNIQUE(document_id, page_num),
  FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS text_chunks (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  page_id      INTEGER NOT NULL,
  document_id  INTEGER NOT NULL,
  chunk_index  INTEGER NOT NULL,
  text         TEXT NOT NULL,
  vector_id    TEXT,
  UNIQUE(page_id, chunk_index),
  FOREIGN KEY (page_id) REFERENCES pages(id) ON DELETE CASCADE,
  FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS regions (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  page_id      INTEGER NOT NULL,
  document_id  INTEGER NOT NULL,
  label        TEXT NOT NULL,
  y0 INTEGER NOT NULL, x0 INTEGER NOT NULL, y1 INTEGER NOT NULL, x1 INTEGER NOT NULL,
  crop_path    TEXT NOT NULL DEFAULT '',
  vector_id    TEXT,
  FOREIGN KEY (page_id) REFERENCES pages(id) ON DELETE CASCADE,
  FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pages_document_id ON pages(document_id);
CREATE INDEX IF NOT EXISTS idx_text_chunks_document_id ON text_chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_text_chunks_page_id ON text_chunks(page_id);
CREATE INDEX IF NOT EXISTS idx_regions_document_id ON regions(document_id);
CREATE INDEX IF NOT EXISTS idx_regions_page_id ON regions(page_id);
CREATE INDEX IF NOT EXISTS idx_regions_label ON regions(label);

CREATE VIRTUAL TABLE IF NOT EXISTS text_chunks_fts USING fts5(
  text,
  content='text_chunks',
  content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS text_chunks_ai AFTER INSERT ON text_chunks BEGIN
  INSERT INTO text_chunks_fts(rowid, text) VALUES (new.id, new.text);
END;

CREATE TRIGGER IF NOT EXISTS text_chunks_ad AFTER DELETE ON text_chunks BEGIN
  INSERT INTO text_chunks_fts(text_chunks_fts, rowid, text) VALUES ('delete', old.id, old.text);
END;

CREATE TRIGGER IF NOT EXISTS text_chunks_au AFTER UPDATE ON text_chunks BEGIN
  INSERT INTO text_chunks_fts(text_chunks_fts, rowid, text) VALUES ('delete', old.id, old.text);
  INSERT INTO text_chunks_fts(rowid, text) VALUES (new.id, new.text);
END;
`

// Open creates (if needed) and opens the content store at path, enabling
// WAL mode and applying the schema. A lock held by another process
// surfaces as a DatabaseLocked AppError rather than a bare driver error.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.NewDatabaseLocked(path, err.Error())
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseLocked(path, err.Error())
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, apperrors.NewDatabaseLocked(path, err.Error())
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply content store schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func createDocumentWith(ctx context.Context, exec dbExecer, fileHash, filename string) (int64, error) {
	res, err := exec.ExecContext(ctx,
		`INSERT INTO documents(file_hash, filename, total_pages, storage_path) VALUES (?, ?, 0, '')`,
		fileHash, filename,
	)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err, "create document")
	}
	return res.LastInsertId()
}

// CreateDocument inserts a Document row and returns its assigned id.
// Callers must already have checked file_hash for uniqueness via
// FindDocumentByHash to avoid racing the UNIQUE constraint.
func (s *Store) CreateDocument(ctx context.Context, fileHash, filename string) (int64, error) {
	return createDocumentWith(ctx, s.db, fileHash, filename)
}

// CreateDocument is the transactional counterpart of Store.CreateDocument.
func (t *Tx) CreateDocument(ctx context.Context, fileHash, filename string) (int64, error) {
	return createDocumentWith(ctx, t.tx, fileHash, filename)
}

// FindDocumentByHash returns the existing Document for a file hash, or
// (nil, nil) if no such document exists.
func (s *Store) FindDocumentByHash(ctx context.Context, fileHash string) (*entity.Document, error) {
	var doc entity.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_hash, filename, total_pages, storage_path FROM documents WHERE file_hash = ?`,
		fileHash,
	).Scan(&doc.ID, &doc.FileHash, &doc.Filename, &doc.TotalPages, &doc.StoragePath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "find document by hash")
	}
	return &doc, nil
}

// GetDocument loads a Document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*entity.Document, error) {
	var doc entity.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_hash, filename, total_pages, storage_path FROM documents WHERE id = ?`,
		id,
	).Scan(&doc.ID, &doc.FileHash, &doc.Filename, &doc.TotalPages, &doc.StoragePath)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("document not found")
	}
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "get document")
	}
	return &doc, nil
}

// ListDocuments returns up to limit Documents starting at offset, ordered
// by id. A limit of 0 or less returns every document.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]entity.Document, error) {
	query := `SELECT id, file_hash, filename, total_pages, storage_path FROM documents ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "list documents")
	}
	defer rows.Close()

	var docs []entity.Document
	for rows.Next() {
		var doc entity.Document
		if err := rows.Scan(&doc.ID, &doc.FileHash, &doc.Filename, &doc.TotalPages, &doc.StoragePath); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "scan document")
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CountDocuments returns the total number of indexed documents, for
// pagination metadata.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, apperrors.WrapDatabaseError(err, "count documents")
	}
	return count, nil
}

func setDocumentStoragePathWith(ctx context.Context, exec dbExecer, documentID int64, storagePath string) error {
	_, err := exec.ExecContext(ctx, `UPDATE documents SET storage_path = ? WHERE id = ?`, storagePath, documentID)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "set document storage path")
	}
	return nil
}

// SetDocumentStoragePath records the location of the saved PDF once the
// ingest finalizes.
func (s *Store) SetDocumentStoragePath(ctx context.Context, documentID int64, storagePath string) error {
	return setDocumentStoragePathWith(ctx, s.db, documentID, storagePath)
}

// SetDocumentStoragePath is the transactional counterpart of
// Store.SetDocumentStoragePath.
func (t *Tx) SetDocumentStoragePath(ctx context.Context, documentID int64, storagePath string) error {
	return setDocumentStoragePathWith(ctx, t.tx, documentID, storagePath)
}

func setDocumentTotalPagesWith(ctx context.Context, exec dbExecer, documentID int64, totalPages int) error {
	_, err := exec.ExecContext(ctx, `UPDATE documents SET total_pages = ? WHERE id = ?`, totalPages, documentID)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "set document total pages")
	}
	return nil
}

// SetDocumentTotalPages records the page count once rendering completes.
func (s *Store) SetDocumentTotalPages(ctx context.Context, documentID int64, totalPages int) error {
	return setDocumentTotalPagesWith(ctx, s.db, documentID, totalPages)
}

// SetDocumentTotalPages is the transactional counterpart of
// Store.SetDocumentTotalPages.
func (t *Tx) SetDocumentTotalPages(ctx context.Context, documentID int64, totalPages int) error {
	return setDocumentTotalPagesWith(ctx, t.tx, documentID, totalPages)
}

// DeleteDocument removes a Document and, via ON DELETE CASCADE, every
// dependent Page, TextChunk, and Region row.
func (s *Store) DeleteDocument(ctx context.Context, documentID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "delete document")
	}
	return nil
}

func createPageWith(ctx context.Context, exec dbExecer, documentID int64, pageNum int, imagePath string) (int64, error) {
	res, err := exec.ExecContext(ctx,
		`INSERT INTO pages(document_id, page_num, image_path, ocr_text, ocr_metadata) VALUES (?, ?, ?, '', '')`,
		documentID, pageNum, imagePath,
	)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err, "create page")
	}
	return res.LastInsertId()
}

// CreatePage inserts an empty Page row (ocr_text populated later) and
// returns its assigned id.
func (s *Store) CreatePage(ctx context.Context, documentID int64, pageNum int, imagePath string) (int64, error) {
	return createPageWith(ctx, s.db, documentID, pageNum, imagePath)
}

// CreatePage is the transactional counterpart of Store.CreatePage.
func (t *Tx) CreatePage(ctx context.Context, documentID int64, pageNum int, imagePath string) (int64, error) {
	return createPageWith(ctx, t.tx, documentID, pageNum, imagePath)
}

func setPageOCRWith(ctx context.Context, exec dbExecer, pageID int64, ocrText, ocrMetadata string) error {
	_, err := exec.ExecContext(ctx, `UPDATE pages SET ocr_text = ?, ocr_metadata = ? WHERE id = ?`, ocrText, ocrMetadata, pageID)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "set page ocr")
	}
	return nil
}

// SetPageOCR records the OCR text and raw metadata for a page.
func (s *Store) SetPageOCR(ctx context.Context, pageID int64, ocrText, ocrMetadata string) error {
	return setPageOCRWith(ctx, s.db, pageID, ocrText, ocrMetadata)
}

// SetPageOCR is the transactional counterpart of Store.SetPageOCR.
func (t *Tx) SetPageOCR(ctx context.Context, pageID int64, ocrText, ocrMetadata string) error {
	return setPageOCRWith(ctx, t.tx, pageID, ocrText, ocrMetadata)
}

// GetPage loads a Page by id.
func (s *Store) GetPage(ctx context.Context, pageID int64) (*entity.Page, error) {
	var p entity.Page
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, page_num, image_path, ocr_text, ocr_metadata FROM pages WHERE id = ?`,
		pageID,
	).Scan(&p.ID, &p.DocumentID, &p.PageNum, &p.ImagePath, &p.OCRText, &p.OCRMetadata)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("page not found")
	}
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "get page")
	}
	return &p, nil
}

// GetPageByNum looks up a Document's page by its 1-based page number, the
// addressing scheme the HTTP render/regions routes use.
func (s *Store) GetPageByNum(ctx context.Context, documentID int64, pageNum int) (*entity.Page, error) {
	var p entity.Page
	err := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, page_num, image_path, ocr_text, ocr_metadata FROM pages WHERE document_id = ? AND page_num = ?`,
		documentID, pageNum,
	).Scan(&p.ID, &p.DocumentID, &p.PageNum, &p.ImagePath, &p.OCRText, &p.OCRMetadata)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("page not found")
	}
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "get page by number")
	}
	return &p, nil
}

// ListPages returns every Page of a Document ordered by page_num.
func (s *Store) ListPages(ctx context.Context, documentID int64) ([]entity.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, page_num, image_path, ocr_text, ocr_metadata FROM pages WHERE document_id = ? ORDER BY page_num`,
		documentID,
	)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "list pages")
	}
	defer rows.Close()

	var pages []entity.Page
	for rows.Next() {
		var p entity.Page
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNum, &p.ImagePath, &p.OCRText, &p.OCRMetadata); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "scan page")
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func createTextChunkWith(ctx context.Context, exec dbExecer, pageID, documentID int64, chunkIndex int, text string) (int64, error) {
	res, err := exec.ExecContext(ctx,
		`INSERT INTO text_chunks(page_id, document_id, chunk_index, text, vector_id) VALUES (?, ?, ?, ?, NULL)`,
		pageID, documentID, chunkIndex, text,
	)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err, "create text chunk")
	}
	return res.LastInsertId()
}

// CreateTextChunk inserts a TextChunk row (vector_id initially NULL) and
// returns its assigned id.
func (s *Store) CreateTextChunk(ctx context.Context, pageID, documentID int64, chunkIndex int, text string) (int64, error) {
	return createTextChunkWith(ctx, s.db, pageID, documentID, chunkIndex, text)
}

// CreateTextChunk is the transactional counterpart of Store.CreateTextChunk.
func (t *Tx) CreateTextChunk(ctx context.Context, pageID, documentID int64, chunkIndex int, text string) (int64, error) {
	return createTextChunkWith(ctx, t.tx, pageID, documentID, chunkIndex, text)
}

func setTextChunkVectorIDWith(ctx context.Context, exec dbExecer, chunkID int64, vectorID string) error {
	_, err := exec.ExecContext(ctx, `UPDATE text_chunks SET vector_id = ? WHERE id = ?`, vectorID, chunkID)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "set text chunk vector id")
	}
	return nil
}

// SetTextChunkVectorID records the vector store key for a chunk once its
// embedding has been registered.
func (s *Store) SetTextChunkVectorID(ctx context.Context, chunkID int64, vectorID string) error {
	return setTextChunkVectorIDWith(ctx, s.db, chunkID, vectorID)
}

// SetTextChunkVectorID is the transactional counterpart of
// Store.SetTextChunkVectorID.
func (t *Tx) SetTextChunkVectorID(ctx context.Context, chunkID int64, vectorID string) error {
	return setTextChunkVectorIDWith(ctx, t.tx, chunkID, vectorID)
}

func createRegionWith(ctx context.Context, exec dbExecer, pageID, documentID int64, label string, box entity.Region, cropPath string) (int64, error) {
	res, err := exec.ExecContext(ctx,
		`INSERT INTO regions(page_id, document_id, label, y0, x0, y1, x1, crop_path, vector_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		pageID, documentID, label, box.Y0, box.X0, box.Y1, box.X1, cropPath,
	)
	if err != nil {
		return 0, apperrors.WrapDatabaseError(err, "create region")
	}
	return res.LastInsertId()
}

// CreateRegion inserts a Region row (vector_id initially NULL) and
// returns its assigned id.
func (s *Store) CreateRegion(ctx context.Context, pageID, documentID int64, label string, box entity.Region, cropPath string) (int64, error) {
	return createRegionWith(ctx, s.db, pageID, documentID, label, box, cropPath)
}

// CreateRegion is the transactional counterpart of Store.CreateRegion.
func (t *Tx) CreateRegion(ctx context.Context, pageID, documentID int64, label string, box entity.Region, cropPath string) (int64, error) {
	return createRegionWith(ctx, t.tx, pageID, documentID, label, box, cropPath)
}

func setRegionCropPathWith(ctx context.Context, exec dbExecer, regionID int64, cropPath string) error {
	_, err := exec.ExecContext(ctx, `UPDATE regions SET crop_path = ? WHERE id = ?`, cropPath, regionID)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "set region crop path")
	}
	return nil
}

// SetRegionCropPath records the crop file's storage path once it has
// been written, after the region row exists (the path is keyed by
// region id).
func (s *Store) SetRegionCropPath(ctx context.Context, regionID int64, cropPath string) error {
	return setRegionCropPathWith(ctx, s.db, regionID, cropPath)
}

// SetRegionCropPath is the transactional counterpart of
// Store.SetRegionCropPath.
func (t *Tx) SetRegionCropPath(ctx context.Context, regionID int64, cropPath string) error {
	return setRegionCropPathWith(ctx, t.tx, regionID, cropPath)
}

func setRegionVectorIDWith(ctx context.Context, exec dbExecer, regionID int64, vectorID string) error {
	_, err := exec.ExecContext(ctx, `UPDATE regions SET vector_id = ? WHERE id = ?`, vectorID, regionID)
	if err != nil {
		return apperrors.WrapDatabaseError(err, "set region vector id")
	}
	return nil
}

// SetRegionVectorID records the vector store key for a region once its
// embedding has been registered.
func (s *Store) SetRegionVectorID(ctx context.Context, regionID int64, vectorID string) error {
	return setRegionVectorIDWith(ctx, s.db, regionID, vectorID)
}

// SetRegionVectorID is the transactional counterpart of
// Store.SetRegionVectorID.
func (t *Tx) SetRegionVectorID(ctx context.Context, regionID int64, vectorID string) error {
	return setRegionVectorIDWith(ctx, t.tx, regionID, vectorID)
}

// GetRegion looks up a single Region by id, scoped to a document so a
// region id can't be used to read across documents.
func (s *Store) GetRegion(ctx context.Context, documentID, regionID int64) (*entity.Region, error) {
	var r entity.Region
	var vectorID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, page_id, document_id, label, y0, x0, y1, x1, crop_path, vector_id FROM regions WHERE document_id = ? AND id = ?`,
		documentID, regionID,
	).Scan(&r.ID, &r.PageID, &r.DocumentID, &r.Label, &r.Y0, &r.X0, &r.Y1, &r.X1, &r.CropPath, &vectorID)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("region not found")
	}
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "get region")
	}
	if vectorID.Valid {
		r.VectorID = &vectorID.String
	}
	return &r, nil
}

// ListRegions returns every Region detected on a page.
func (s *Store) ListRegions(ctx context.Context, pageID int64) ([]entity.Region, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, page_id, document_id, label, y0, x0, y1, x1, crop_path, vector_id FROM regions WHERE page_id = ? ORDER BY id`,
		pageID,
	)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "list regions")
	}
	defer rows.Close()

	var regions []entity.Region
	for rows.Next() {
		var r entity.Region
		var vectorID sql.NullString
		if err := rows.Scan(&r.ID, &r.PageID, &r.DocumentID, &r.Label, &r.Y0, &r.X0, &r.Y1, &r.X1, &r.CropPath, &vectorID); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "scan region")
		}
		if vectorID.Valid {
			r.VectorID = &vectorID.String
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// KeywordHit is one row of a keyword search: a TextChunk or Region match
// with enough identifying fields for the search coordinator to fuse it
// with a vector hit and resolve it back to a unified record.
type KeywordHit struct {
	VectorID   string
	DocumentID int64
	PageID     int64
	Kind       string // "text_chunk" or "region"
	Rank       float64
}

// SearchTextChunksFTS runs an FTS5 MATCH query over chunk text, returning
// up to topK hits ordered by the engine's native rank (best first).
// Hits whose chunk has no vector_id are skipped since fusion requires one.
func (s *Store) SearchTextChunksFTS(ctx context.Context, query string, topK int) ([]KeywordHit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tc.vector_id, tc.document_id, tc.page_id, bm25(text_chunks_fts) AS rank
		FROM text_chunks_fts
		JOIN text_chunks tc ON tc.id = text_chunks_fts.rowid
		WHERE text_chunks_fts MATCH ? AND tc.vector_id IS NOT NULL
		ORDER BY rank
		LIMIT ?
	`, query, topK)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "search text chunks fts")
	}
	defer rows.Close()

	var hits []KeywordHit
	for rows.Next() {
		var h KeywordHit
		if err := rows.Scan(&h.VectorID, &h.DocumentID, &h.PageID, &h.Rank); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "scan fts hit")
		}
		h.Kind = "text_chunk"
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// SearchRegionsByLabel runs a case-insensitive substring match against
// Region.label, returning up to topK hits ordered by id (regions have no
// native rank score, so all matches tie at rank 0).
func (s *Store) SearchRegionsByLabel(ctx context.Context, query string, topK int) ([]KeywordHit, error) {
	like := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT vector_id, document_id, page_id
		FROM regions
		WHERE LOWER(label) LIKE ? AND vector_id IS NOT NULL
		ORDER BY id
		LIMIT ?
	`, like, topK)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "search regions by label")
	}
	defer rows.Close()

	var hits []KeywordHit
	for rows.Next() {
		var h KeywordHit
		if err := rows.Scan(&h.VectorID, &h.DocumentID, &h.PageID); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "scan region hit")
		}
		h.Kind = "region"
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// ResolvedHit is a vector_id resolved back to a unified search result
// record, already joined against its owning Document and Page.
type ResolvedHit struct {
	VectorID      string
	DocumentID    int64
	DocumentTitle string
	PageID        int64
	PageNum       int
	ResultType    string // "text" or "image"
	ChunkID       *int64
	RegionID      *int64
	Snippet       string
}

// ResolveByVectorIDs loads the TextChunk and Region rows named by a set
// of vector ids, each joined against documents/pages, in exactly two
// batched queries regardless of how many ids are requested — avoiding
// the N+1 lookup spec.md §4.8 calls out as a performance bug.
func (s *Store) ResolveByVectorIDs(ctx context.Context, vectorIDs []string) (map[string]ResolvedHit, error) {
	hits := make(map[string]ResolvedHit, len(vectorIDs))
	if len(vectorIDs) == 0 {
		return hits, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(vectorIDs)), ",")
	args := make([]any, len(vectorIDs))
	for i, id := range vectorIDs {
		args[i] = id
	}

	chunkRows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT tc.vector_id, tc.document_id, d.filename, tc.page_id, p.page_num, tc.id, tc.text
		FROM text_chunks tc
		JOIN documents d ON d.id = tc.document_id
		JOIN pages p ON p.id = tc.page_id
		WHERE tc.vector_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "resolve text chunks by vector id")
	}
	func() {
		defer chunkRows.Close()
		for chunkRows.Next() {
			var h ResolvedHit
			var chunkID int64
			var text string
			if err = chunkRows.Scan(&h.VectorID, &h.DocumentID, &h.DocumentTitle, &h.PageID, &h.PageNum, &chunkID, &text); err != nil {
				return
			}
			h.ResultType = "text"
			h.ChunkID = &chunkID
			h.Snippet = snippet(text)
			hits[h.VectorID] = h
		}
	}()
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "scan resolved text chunk")
	}

	regionRows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT r.vector_id, r.document_id, d.filename, r.page_id, p.page_num, r.id, r.label
		FROM regions r
		JOIN documents d ON d.id = r.document_id
		JOIN pages p ON p.id = r.page_id
		WHERE r.vector_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, apperrors.WrapDatabaseError(err, "resolve regions by vector id")
	}
	defer regionRows.Close()
	for regionRows.Next() {
		var h ResolvedHit
		var regionID int64
		if err := regionRows.Scan(&h.VectorID, &h.DocumentID, &h.DocumentTitle, &h.PageID, &h.PageNum, &regionID, &h.Snippet); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "scan resolved region")
		}
		h.ResultType = "image"
		h.RegionID = &regionID
		hits[h.VectorID] = h
	}
	return hits, regionRows.Err()
}

const snippetMaxLen = 500

func snippet(text string) string {
	if len(text) <= snippetMaxLen {
		return text
	}
	return text[:snippetMaxLen]
}
