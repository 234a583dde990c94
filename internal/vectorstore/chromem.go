package vectorstore

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/alpinesboltltd/docwell/internal/logging"
)

const collectionName = "chunks_and_regions"

// ChromemStore is the persistent VectorDB backend, embedding chromem-go's
// on-disk collection. Vectors arrive pre-computed from the embedder, so
// the collection is created with a nil embedding function and queried
// via QueryEmbedding rather than chromem's own text-embedding Query path.
type ChromemStore struct {
	db  *chromem.DB
	col *chromem.Collection
}

// NewChromemStore opens or creates a persistent chromem-go database at
// dir and its single collection.
func NewChromemStore(dir string) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db at %s: %w", dir, err)
	}
	col, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get or create chromem collection: %w", err)
	}
	return &ChromemStore{db: db, col: col}, nil
}

func metadataToStrings(m Metadata) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range sanitizeMetadata(m) {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func (c *ChromemStore) Add(ctx context.Context, ids []string, vectors [][]float32, metadata []Metadata) error {
	if len(ids) != len(vectors) || len(ids) != len(metadata) {
		return fmt.Errorf("vectorstore: ids, vectors, and metadata must have equal length")
	}
	docs := make([]chromem.Document, len(ids))
	for i, id := range ids {
		docs[i] = chromem.Document{
			ID:        id,
			Metadata:  metadataToStrings(metadata[i]),
			Embedding: vectors[i],
		}
	}
	return c.col.AddDocuments(ctx, docs, 1)
}

func (c *ChromemStore) Search(ctx context.Context, vector []float32, topK int, filter Metadata) ([]Result, error) {
	count := c.col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	where := metadataToStrings(filter)
	hits, err := c.col.QueryEmbedding(ctx, vector, topK, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	results := make([]Result, len(hits))
	for i, h := range hits {
		meta := make(Metadata, len(h.Metadata))
		for k, v := range h.Metadata {
			meta[k] = v
		}
		results[i] = Result{ID: h.ID, Score: float64(h.Similarity), Metadata: meta}
	}
	return results, nil
}

func (c *ChromemStore) Close() error { return nil }

// Open selects a backend by name, falling back to MemoryStore with a
// warning if the persistent backend fails to initialize. "chromem"
// attempts ChromemStore; any other value returns a MemoryStore.
func Open(backend, chromemDir string, dimension int, log *logging.Logger) VectorDB {
	if backend != "chromem" {
		return NewMemoryStore(dimension)
	}
	store, err := NewChromemStore(chromemDir)
	if err != nil {
		log.Warnf("persistent vector store init failed, falling back to in-memory: %v", err)
		return NewMemoryStore(dimension)
	}
	return store
}
