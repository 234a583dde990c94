// Package ingest is the end-to-end indexing pipeline: render, then a
// parallel OCR/detection stage joined by a barrier, then chunk, embed,
// and persist.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alpinesboltltd/docwell/internal/contentstore"
	"github.com/alpinesboltltd/docwell/internal/detector"
	"github.com/alpinesboltltd/docwell/internal/embedder"
	"github.com/alpinesboltltd/docwell/internal/entity"
	apperrors "github.com/alpinesboltltd/docwell/internal/errors"
	"github.com/alpinesboltltd/docwell/internal/logging"
	"github.com/alpinesboltltd/docwell/internal/ocr"
	"github.com/alpinesboltltd/docwell/internal/render"
	"github.com/alpinesboltltd/docwell/internal/storage"
	"github.com/alpinesboltltd/docwell/internal/vectorstore"
)

// Config tunes the pipeline's concurrency and chunking parameters.
type Config struct {
	OCRBatchSize     int
	OCRMaxQueueSize  int
	DetectionWorkers int
	PDFRenderDPI     int
	ChunkSize        int
	ChunkOverlap     int
}

// Pipeline wires together every collaborator an ingest needs.
type Pipeline struct {
	cfg      Config
	content  *contentstore.Store
	storage  *storage.FileStorage
	vectors  vectorstore.VectorDB
	renderer render.Renderer
	ocr      *ocr.Client
	detector *detector.Client
	embedder *embedder.Client
	log      *logging.Logger
}

// New builds a Pipeline from its collaborators.
func New(
	cfg Config,
	content *contentstore.Store,
	fileStorage *storage.FileStorage,
	vectors vectorstore.VectorDB,
	renderer render.Renderer,
	ocrClient *ocr.Client,
	detectorClient *detector.Client,
	embedderClient *embedder.Client,
	log *logging.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		content:  content,
		storage:  fileStorage,
		vectors:  vectors,
		renderer: renderer,
		ocr:      ocrClient,
		detector: detectorClient,
		embedder: embedderClient,
		log:      log,
	}
}

// Run indexes one PDF end to end and returns its document id. A
// duplicate (matching file hash) is a silent success: duplicate is true
// and the existing document's id is returned without reprocessing.
func (p *Pipeline) Run(ctx context.Context, pdfBytes []byte, filename string) (documentID int64, duplicate bool, err error) {
	hash := sha256.Sum256(pdfBytes)
	fileHash := hex.EncodeToString(hash[:])

	if existing, err := p.content.FindDocumentByHash(ctx, fileHash); err != nil {
		return 0, false, err
	} else if existing != nil {
		p.log.Infof("skipping duplicate pdf %q (document_id=%d)", filename, existing.ID)
		return existing.ID, true, nil
	}

	pages, err := p.renderer.RenderPages(ctx, pdfBytes, p.cfg.PDFRenderDPI)
	if err != nil {
		return 0, false, apperrors.NewRenderFailure("failed to render pdf", err.Error())
	}
	if len(pages) == 0 {
		return 0, false, apperrors.NewRenderFailure("pdf rendered zero pages", filename)
	}

	// Everything from here down is one document's worth of database
	// writes. They all land in a single transaction so a fatal error
	// partway through — a transient embedder failure, a cancelled
	// context — leaves no partial Document row behind for a retry to
	// trip over FindDocumentByHash on.
	tx, err := p.content.BeginTx(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	documentID, err = tx.CreateDocument(ctx, fileHash, filename)
	if err != nil {
		return 0, false, err
	}
	if err := tx.SetDocumentTotalPages(ctx, documentID, len(pages)); err != nil {
		return 0, false, err
	}

	pageIDs := make([]int64, len(pages))
	for i, pg := range pages {
		imagePath, err := p.storage.SavePage(pg.PNG, documentID, pg.PageNum)
		if err != nil {
			return 0, false, apperrors.NewStorageFailure("failed to save page raster", err.Error())
		}
		pageID, err := tx.CreatePage(ctx, documentID, pg.PageNum, imagePath)
		if err != nil {
			return 0, false, err
		}
		pageIDs[i] = pageID
	}

	var regionsByPage [][]detector.Region
	detected := make(chan struct{})
	go func() {
		defer close(detected)
		regionsByPage = p.runDetection(ctx, pages, pageIDs, documentID)
	}()
	ocrTexts := p.runOCR(ctx, pages, pageIDs)
	<-detected

	for i, pageID := range pageIDs {
		if err := tx.SetPageOCR(ctx, pageID, ocrTexts[i], ""); err != nil {
			return 0, false, err
		}
	}

	if err := p.embedChunks(ctx, tx, documentID, pageIDs, ocrTexts); err != nil {
		return 0, false, err
	}
	if err := p.embedRegions(ctx, tx, documentID, pages, pageIDs, regionsByPage); err != nil {
		return 0, false, err
	}

	storagePath, err := p.storage.SavePDF(pdfBytes, documentID, filename)
	if err != nil {
		return 0, false, apperrors.NewStorageFailure("failed to save pdf", err.Error())
	}
	if err := tx.SetDocumentStoragePath(ctx, documentID, storagePath); err != nil {
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}

	return documentID, false, nil
}

type ocrTask struct {
	index int
	png   []byte
}

// runOCR feeds every page into a bounded queue and drains it with a
// single batching consumer. Per-page OCR failures degrade to empty
// text; the pipeline never aborts because of them.
func (p *Pipeline) runOCR(ctx context.Context, pages []render.Page, pageIDs []int64) []string {
	texts := make([]string, len(pages))
	tasks := make(chan ocrTask, p.cfg.OCRMaxQueueSize)

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.consumeOCR(ctx, tasks, texts)
	}()

	for i, pg := range pages {
		select {
		case tasks <- ocrTask{index: i, png: pg.PNG}:
		case <-ctx.Done():
			close(tasks)
			<-done
			return texts
		}
	}
	close(tasks)
	<-done
	return texts
}

// consumeOCR accumulates batches of up to OCRBatchSize, flushing early
// if a full second passes without a new item. Any non-empty batch is
// always flushed before returning, including the final partial batch
// left when the task channel closes — unlike a naive sentinel-based
// drain, there is no path that silently drops a trailing partial batch.
func (p *Pipeline) consumeOCR(ctx context.Context, tasks <-chan ocrTask, texts []string) {
	for {
		batch := make([]ocrTask, 0, p.cfg.OCRBatchSize)
		closed := false

	collect:
		for len(batch) < p.cfg.OCRBatchSize {
			select {
			case task, ok := <-tasks:
				if !ok {
					closed = true
					break collect
				}
				batch = append(batch, task)
			case <-time.After(time.Second):
				break collect
			case <-ctx.Done():
				closed = true
				break collect
			}
		}

		if len(batch) > 0 {
			p.flushOCRBatch(ctx, batch, texts)
		}
		if closed {
			return
		}
	}
}

func (p *Pipeline) flushOCRBatch(ctx context.Context, batch []ocrTask, texts []string) {
	images := make([][]byte, len(batch))
	for i, t := range batch {
		images[i] = t.png
	}
	results, err := p.ocr.BatchOCR(ctx, images)
	if err != nil {
		p.log.Warnf("ocr batch of %d pages failed, recording empty text: %v", len(batch), err)
		return
	}
	for _, r := range results {
		if r.Err != nil {
			p.log.Warnf("ocr failed for page index %d: %v", batch[r.Index].index, r.Err)
			continue
		}
		texts[batch[r.Index].index] = r.Text
	}
}

// runDetection runs the region detector over every page with a bounded
// worker pool. A per-page detection failure degrades to an empty
// region list rather than aborting the ingest.
func (p *Pipeline) runDetection(ctx context.Context, pages []render.Page, pageIDs []int64, documentID int64) [][]detector.Region {
	results := make([][]detector.Region, len(pages))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.DetectionWorkers)

	for i, pg := range pages {
		i, pg := i, pg
		group.Go(func() error {
			regions, err := p.detector.DetectRegions(gctx, pg.PNG)
			if err != nil {
				p.log.Warnf("region detection failed for document %d page %d: %v", documentID, pg.PageNum, err)
				return nil
			}
			results[i] = regions
			return nil
		})
	}
	_ = group.Wait()
	return results
}

func (p *Pipeline) embedChunks(ctx context.Context, tx *contentstore.Tx, documentID int64, pageIDs []int64, ocrTexts []string) error {
	type pending struct {
		pageID     int64
		chunkIndex int
		text       string
	}
	var chunks []pending
	for i, text := range ocrTexts {
		for idx, chunk := range chunkText(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap) {
			chunks = append(chunks, pending{pageID: pageIDs[i], chunkIndex: idx, text: chunk})
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.text
	}
	embedded, err := p.embedder.EmbedText(ctx, texts)
	if err != nil {
		return apperrors.NewExternalAPIError("failed to embed text chunks", err.Error())
	}

	ids := make([]string, 0, len(embedded))
	vectors := make([][]float32, 0, len(embedded))
	metas := make([]vectorstore.Metadata, 0, len(embedded))
	chunkIDs := make([]int64, 0, len(embedded))

	for _, e := range embedded {
		c := chunks[e.Index]
		chunkID, err := tx.CreateTextChunk(ctx, c.pageID, documentID, c.chunkIndex, c.text)
		if err != nil {
			return err
		}
		vectorID := fmt.Sprintf("chunk_%d_%d_%d", documentID, c.pageID, c.chunkIndex)
		ids = append(ids, vectorID)
		vectors = append(vectors, e.Vector)
		metas = append(metas, vectorstore.Metadata{"document_id": documentID, "page_id": c.pageID, "type": "text"})
		chunkIDs = append(chunkIDs, chunkID)
	}

	if err := p.vectors.Add(ctx, ids, vectors, metas); err != nil {
		return apperrors.NewExternalAPIError("failed to register text chunk vectors", err.Error())
	}
	for i, chunkID := range chunkIDs {
		if err := tx.SetTextChunkVectorID(ctx, chunkID, ids[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) embedRegions(ctx context.Context, tx *contentstore.Tx, documentID int64, pages []render.Page, pageIDs []int64, regionsByPage [][]detector.Region) error {
	type pendingRegion struct {
		pageID   int64
		label    string
		y0, x0   int
		y1, x1   int
		cropData []byte
	}
	var pending []pendingRegion

	for i, regions := range regionsByPage {
		pg := pages[i]
		for _, r := range regions {
			cy0, cx0, cy1, cx1, ok := clampBox(r.Y0, r.X0, r.Y1, r.X1, pg.Height, pg.Width)
			if !ok {
				p.log.Warnf("dropping degenerate region box on document %d page %d: (%d,%d,%d,%d)", documentID, pg.PageNum, r.Y0, r.X0, r.Y1, r.X1)
				continue
			}
			crop, err := cropRegion(pg.PNG, cy0, cx0, cy1, cx1)
			if err != nil {
				p.log.Warnf("failed to crop region on document %d page %d: %v", documentID, pg.PageNum, err)
				continue
			}
			pending = append(pending, pendingRegion{
				pageID: pageIDs[i], label: r.Label,
				y0: cy0, x0: cx0, y1: cy1, x1: cx1,
				cropData: crop,
			})
		}
	}
	if len(pending) == 0 {
		return nil
	}

	regionIDs := make([]int64, len(pending))
	crops := make([][]byte, len(pending))
	for i, pr := range pending {
		box := entity.Region{Y0: pr.y0, X0: pr.x0, Y1: pr.y1, X1: pr.x1}
		regionID, err := tx.CreateRegion(ctx, pr.pageID, documentID, pr.label, box, "")
		if err != nil {
			return err
		}
		cropPath, err := p.storage.SaveCrop(pr.cropData, documentID, regionID)
		if err != nil {
			return apperrors.NewStorageFailure("failed to save region crop", err.Error())
		}
		if err := tx.SetRegionCropPath(ctx, regionID, cropPath); err != nil {
			return err
		}
		regionIDs[i] = regionID
		crops[i] = pr.cropData
	}

	embedded, err := p.embedder.EmbedImages(ctx, crops)
	if err != nil {
		return apperrors.NewExternalAPIError("failed to embed region crops", err.Error())
	}

	ids := make([]string, 0, len(embedded))
	vectors := make([][]float32, 0, len(embedded))
	metas := make([]vectorstore.Metadata, 0, len(embedded))
	idxToVectorID := make(map[int64]string, len(embedded))

	for _, e := range embedded {
		regionID := regionIDs[e.Index]
		vectorID := fmt.Sprintf("region_%d_%d", documentID, regionID)
		ids = append(ids, vectorID)
		vectors = append(vectors, e.Vector)
		metas = append(metas, vectorstore.Metadata{
			"document_id": documentID,
			"page_id":     pending[e.Index].pageID,
			"type":        "image",
			"region_id":   regionID,
		})
		idxToVectorID[regionID] = vectorID
	}

	if err := p.vectors.Add(ctx, ids, vectors, metas); err != nil {
		return apperrors.NewExternalAPIError("failed to register region vectors", err.Error())
	}
	for regionID, vectorID := range idxToVectorID {
		if err := tx.SetRegionVectorID(ctx, regionID, vectorID); err != nil {
			return err
		}
	}
	return nil
}
