// Package embedder produces text and image embeddings in one shared
// vector space via the genai multimodal embedding model, with
// quota-aware retry.
package embedder

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alpinesboltltd/docwell/internal/retry"
)

// MaxInputBytes bounds a single text/image item; anything larger is
// treated as InvalidInput and skipped rather than sent to the model.
const MaxInputBytes = 20 * 1024 * 1024

// Client wraps a genai client for text and image embedding calls.
type Client struct {
	genai     *genai.Client
	model     string
	dimension int32
}

// New builds a Client against a shared genai client.
func New(client *genai.Client, model string, dimension int) *Client {
	return &Client{genai: client, model: model, dimension: int32(dimension)}
}

// TextResult is one text embedding, or the index's absence from the
// result if the input was invalid.
type TextResult struct {
	Index  int
	Vector []float32
}

// EmbedText embeds a batch of text chunks for indexing in a single
// request. Empty or oversize items are skipped silently: the returned
// slice has no entry for that index, never a zero vector in its place.
func (c *Client) EmbedText(ctx context.Context, texts []string) ([]TextResult, error) {
	type item struct {
		index int
		text  string
	}
	valid := make([]item, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" || len(text) > MaxInputBytes {
			continue
		}
		valid = append(valid, item{index: i, text: text})
	}
	if len(valid) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(valid))
	for i, v := range valid {
		contents[i] = &genai.Content{Parts: []*genai.Part{{Text: v.text}}}
	}

	vectors, err := c.embedBatch(ctx, contents, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, fmt.Errorf("embed text batch of %d chunks: %w", len(valid), err)
	}

	results := make([]TextResult, len(valid))
	for i, v := range valid {
		results[i] = TextResult{Index: v.index, Vector: vectors[i]}
	}
	return results, nil
}

// ImageResult is one image embedding, or the index's absence from the
// result if the input was invalid.
type ImageResult struct {
	Index  int
	Vector []float32
}

// EmbedImages embeds a batch of PNG-encoded region crops in a single
// request.
func (c *Client) EmbedImages(ctx context.Context, images [][]byte) ([]ImageResult, error) {
	type item struct {
		index int
		img   []byte
	}
	valid := make([]item, 0, len(images))
	for i, img := range images {
		if len(img) == 0 || len(img) > MaxInputBytes {
			continue
		}
		valid = append(valid, item{index: i, img: img})
	}
	if len(valid) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(valid))
	for i, v := range valid {
		contents[i] = &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{MIMEType: "image/png", Data: v.img}}}}
	}

	vectors, err := c.embedBatch(ctx, contents, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, fmt.Errorf("embed image batch of %d crops: %w", len(valid), err)
	}

	results := make([]ImageResult, len(valid))
	for i, v := range valid {
		results[i] = ImageResult{Index: v.index, Vector: vectors[i]}
	}
	return results, nil
}

// EmbedQuery embeds a single search query using retrieval-query task
// semantics, distinct from the document-indexing task type used above.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vector, err := c.embedOne(ctx, &genai.Content{Parts: []*genai.Part{{Text: query}}}, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}

func (c *Client) embedOne(ctx context.Context, content *genai.Content, taskType string) ([]float32, error) {
	vectors, err := c.embedBatch(ctx, []*genai.Content{content}, taskType)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch sends every content in one EmbedContent call and retries
// the whole batch together on a quota failure; any other error is
// returned without a retry.
func (c *Client) embedBatch(ctx context.Context, contents []*genai.Content, taskType string) ([][]float32, error) {
	config := &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &c.dimension,
	}
	var vectors [][]float32
	err := retry.Do(ctx, func() error {
		resp, err := c.genai.Models.EmbedContent(ctx, c.model, contents, config)
		if err != nil {
			if isQuotaExceeded(err) {
				return &retry.QuotaExceeded{Err: err}
			}
			return err
		}
		if len(resp.Embeddings) != len(contents) {
			return fmt.Errorf("embedder: expected %d embeddings, got %d", len(contents), len(resp.Embeddings))
		}
		vectors = make([][]float32, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			vectors[i] = e.Values
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

func isQuotaExceeded(err error) bool {
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.ResourceExhausted
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") || strings.Contains(err.Error(), "429")
}
