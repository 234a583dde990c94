package entity

// Document represents one ingested PDF. A Document is created once per
// unique file hash and is immutable afterwards.
type Document struct {
	ID          int64  `json:"id"`
	FileHash    string `json:"file_hash"`
	Filename    string `json:"filename"`
	TotalPages  int    `json:"total_pages"`
	StoragePath string `json:"storage_path"`
}

// Page is one rendered page of a Document. OCRText is populated once the
// OCR stage of the ingest pipeline completes for that page.
type Page struct {
	ID          int64  `json:"id"`
	DocumentID  int64  `json:"document_id"`
	PageNum     int    `json:"page_num"`
	ImagePath   string `json:"image_path"`
	OCRText     string `json:"ocr_text"`
	OCRMetadata string `json:"ocr_metadata,omitempty"`
}

// TextChunk is a fixed-width overlapping window of a page's OCR text.
// VectorID is nil until the chunk's embedding has been registered in the
// vector store.
type TextChunk struct {
	ID         int64   `json:"id"`
	PageID     int64   `json:"page_id"`
	DocumentID int64   `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	VectorID   *string `json:"vector_id,omitempty"`
}

// Region is a detected figure, table, or diagram on a page, in raster
// pixel coordinates ordered [Y0, X0, Y1, X1] to match the detector's
// native box_2d convention.
type Region struct {
	ID         int64   `json:"id"`
	PageID     int64   `json:"page_id"`
	DocumentID int64   `json:"document_id"`
	Label      string  `json:"label"`
	Y0         int     `json:"y0"`
	X0         int     `json:"x0"`
	Y1         int     `json:"y1"`
	X1         int     `json:"x1"`
	CropPath   string  `json:"crop_path"`
	VectorID   *string `json:"vector_id,omitempty"`
}

// Width reports the pixel width of the region's bounding box.
func (r Region) Width() int { return r.X1 - r.X0 }

// Height reports the pixel height of the region's bounding box.
func (r Region) Height() int { return r.Y1 - r.Y0 }

// Valid reports whether the box satisfies the ordering invariant required
// by the content store: 0 <= y0 < y1 and 0 <= x0 < x1.
func (r Region) Valid() bool {
	return r.Y0 >= 0 && r.Y0 < r.Y1 && r.X0 >= 0 && r.X0 < r.X1
}
