// Package ocr extracts text from page raster images via Cloud Vision's
// batch text-detection endpoint.
package ocr

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// MaxBatchSize is the hard ceiling on a single BatchAnnotateImages call;
// callers that batch more than this must split into multiple calls.
const MaxBatchSize = 16

// Result is one item of a BatchOCR response, preserving the input order
// of the images slice passed to BatchOCR.
type Result struct {
	Index int
	Text  string
	Err   error
}

// Client wraps a Cloud Vision image annotator for batched text detection.
type Client struct {
	vision *vision.ImageAnnotatorClient
}

// New constructs a Client using application-default Google Cloud
// credentials, matching the teacher's client-construction idiom.
func New(ctx context.Context) (*Client, error) {
	visionClient, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &Client{vision: visionClient}, nil
}

// Close releases the underlying Vision client.
func (c *Client) Close() error {
	return c.vision.Close()
}

// BatchOCR runs TEXT_DETECTION over images in one BatchAnnotateImages
// call and returns one Result per input image, in input order. A
// per-item detection problem is reported via Result.Err rather than
// failing the whole batch; only a transport-level failure of the whole
// request returns a non-nil error.
func (c *Client) BatchOCR(ctx context.Context, images [][]byte) ([]Result, error) {
	if len(images) == 0 {
		return nil, nil
	}
	if len(images) > MaxBatchSize {
		return nil, fmt.Errorf("ocr: batch of %d exceeds max batch size %d", len(images), MaxBatchSize)
	}

	requests := make([]*visionpb.AnnotateImageRequest, len(images))
	for i, img := range images {
		requests[i] = &visionpb.AnnotateImageRequest{
			Image: &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_TEXT_DETECTION},
			},
		}
	}

	resp, err := c.vision.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{Requests: requests})
	if err != nil {
		return nil, fmt.Errorf("batch annotate images: %w", err)
	}

	results := make([]Result, len(images))
	for i := range images {
		results[i].Index = i
		if i >= len(resp.Responses) {
			results[i].Err = fmt.Errorf("ocr: no response for image index %d", i)
			continue
		}
		item := resp.Responses[i]
		if item.Error != nil {
			results[i].Err = fmt.Errorf("ocr: %s", item.Error.GetMessage())
			continue
		}
		if len(item.TextAnnotations) == 0 {
			continue // no text found; empty string is a valid result, not an error
		}
		results[i].Text = item.TextAnnotations[0].Description
	}
	return results, nil
}
