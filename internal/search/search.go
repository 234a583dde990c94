// Package search is the hybrid retrieval core: it fuses a keyword match
// over the FTS5 index with a semantic match over the vector store using
// Reciprocal Rank Fusion, then resolves the fused ids back to full
// search results in batched queries.
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/alpinesboltltd/docwell/internal/contentstore"
	"github.com/alpinesboltltd/docwell/internal/embedder"
	"github.com/alpinesboltltd/docwell/internal/vectorstore"
)

// Mode selects which retrieval path(s) a Query exercises.
type Mode string

const (
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// rrfK is the Reciprocal Rank Fusion damping constant. Lower-ranked
// results still contribute a small score rather than being zeroed out.
const rrfK = 60

// Result is one item in a search response, already joined against its
// owning document and page.
type Result struct {
	DocumentID    int64   `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	PageID        int64   `json:"page_id"`
	PageNum       int     `json:"page_num"`
	ResultType    string  `json:"result_type"`
	ChunkID       *int64  `json:"chunk_id,omitempty"`
	RegionID      *int64  `json:"region_id,omitempty"`
	Snippet       string  `json:"snippet"`
	Score         float64 `json:"score"`
	VectorID      string  `json:"vector_id"`
}

// Engine coordinates keyword search, semantic search, and RRF fusion
// over a content store and a vector store.
type Engine struct {
	content  *contentstore.Store
	vectors  vectorstore.VectorDB
	embedder *embedder.Client
}

// New builds a search Engine over the given content store, vector
// store, and query embedder.
func New(content *contentstore.Store, vectors vectorstore.VectorDB, emb *embedder.Client) *Engine {
	return &Engine{content: content, vectors: vectors, embedder: emb}
}

// Search runs query in the given Mode and returns up to topK fused
// results, highest score first.
func (e *Engine) Search(ctx context.Context, query string, mode Mode, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 10
	}

	var rankedLists [][]string // each inner slice is vector ids, best match first

	if mode == ModeKeyword || mode == ModeHybrid {
		ids, err := e.keywordRanked(ctx, query, topK)
		if err != nil {
			return nil, fmt.Errorf("search: keyword pass: %w", err)
		}
		if len(ids) > 0 {
			rankedLists = append(rankedLists, ids)
		}
	}

	if mode == ModeSemantic || mode == ModeHybrid {
		ids, err := e.semanticRanked(ctx, query, topK)
		if err != nil {
			return nil, fmt.Errorf("search: semantic pass: %w", err)
		}
		if len(ids) > 0 {
			rankedLists = append(rankedLists, ids)
		}
	}

	fused := fuseRRF(rankedLists)
	if len(fused) > topK {
		fused = fused[:topK]
	}
	if len(fused) == 0 {
		return nil, nil
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.id
	}
	hits, err := e.content.ResolveByVectorIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("search: resolve fused ids: %w", err)
	}

	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		hit, ok := hits[f.id]
		if !ok {
			// The vector store or FTS index named an id the content
			// store no longer has a row for; skip rather than fail.
			continue
		}
		results = append(results, Result{
			DocumentID:    hit.DocumentID,
			DocumentTitle: hit.DocumentTitle,
			PageID:        hit.PageID,
			PageNum:       hit.PageNum,
			ResultType:    hit.ResultType,
			ChunkID:       hit.ChunkID,
			RegionID:      hit.RegionID,
			Snippet:       hit.Snippet,
			Score:         f.score,
			VectorID:      f.id,
		})
	}
	return results, nil
}

// keywordRanked runs the FTS5 text search and the region label search
// and merges them into one rank-ordered id list, text hits first since
// bm25 already orders them best-first and region hits carry no native
// rank.
func (e *Engine) keywordRanked(ctx context.Context, query string, topK int) ([]string, error) {
	textHits, err := e.content.SearchTextChunksFTS(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	regionHits, err := e.content.SearchRegionsByLabel(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(textHits)+len(regionHits))
	for _, h := range textHits {
		ids = append(ids, h.VectorID)
	}
	for _, h := range regionHits {
		ids = append(ids, h.VectorID)
	}
	if len(ids) > topK {
		ids = ids[:topK]
	}
	return ids, nil
}

// semanticRanked embeds the query and ranks vector store hits by score.
func (e *Engine) semanticRanked(ctx context.Context, query string, topK int) ([]string, error) {
	vector, err := e.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := e.vectors.Search(ctx, vector, topK, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids, nil
}

type fusedID struct {
	id    string
	score float64
}

// fuseRRF combines any number of rank-ordered id lists with Reciprocal
// Rank Fusion: score(id) = sum over lists containing id of
// 1/(rrfK+rank+1), where rank is the 0-indexed position in that list.
// A single batched resolution query over the fused id set is the
// caller's job, not this function's — fuseRRF only orders ids.
func fuseRRF(lists [][]string) []fusedID {
	scores := make(map[string]float64)
	order := make([]string, 0)
	for _, list := range lists {
		for rank, id := range list {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / float64(rrfK+rank+1)
		}
	}
	fused := make([]fusedID, len(order))
	for i, id := range order {
		fused[i] = fusedID{id: id, score: scores[id]}
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].score > fused[j].score })
	return fused
}
