// Package detector finds figures, tables, and diagrams on a page raster
// via a generative model instructed to emit strict JSON bounding boxes.
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// MaxRegions caps how many detected regions a single page response may
// contribute; the model is told this limit in its prompt and the parser
// enforces it defensively regardless.
const MaxRegions = 25

const detectionPrompt = "Detect all figures, tables, diagrams, and notable images on this PDF page. " +
	"Return bounding boxes and short descriptive labels for each."

// Region is one detected bounding box in the raster's native pixel
// space, ordered [Y0, X0, Y1, X1] to match box_2d.
type Region struct {
	Label string
	Y0    int
	X0    int
	Y1    int
	X1    int
}

// Client wraps a genai client for region detection.
type Client struct {
	genai                  *genai.Client
	model                  string
	systemInstruction      string
	pdfSpatialInstructions string
}

// Config is the subset of process configuration the detector needs.
type Config struct {
	Model                  string
	SystemInstruction      string
	PDFSpatialInstructions string
}

// New builds a Client against an existing genai client, matching the
// teacher's pattern of sharing one genai.Client across components.
func New(client *genai.Client, cfg Config) *Client {
	return &Client{
		genai:                  client,
		model:                  cfg.Model,
		systemInstruction:      cfg.SystemInstruction,
		pdfSpatialInstructions: cfg.PDFSpatialInstructions,
	}
}

// DetectRegions runs detection on one page raster. A parse failure or
// an empty/malformed model response yields an empty slice, never an
// error; only a transport-level failure of the generate call returns
// an error.
func (c *Client) DetectRegions(ctx context.Context, image []byte) ([]Region, error) {
	sysInstr := c.systemInstruction
	if c.pdfSpatialInstructions != "" {
		sysInstr = sysInstr + "\n" + c.pdfSpatialInstructions
	}

	temperature := float32(0.5)
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: detectionPrompt},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: image}},
			},
		},
	}
	genConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: sysInstr}}},
		Temperature:       &temperature,
	}

	result, err := c.genai.Models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		return nil, fmt.Errorf("detector: generate content: %w", err)
	}

	text := result.Text()
	return parseRegions(text), nil
}

func parseRegions(text string) []Region {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	raw := strings.ReplaceAll(text, "```json", "")
	raw = strings.ReplaceAll(raw, "```", "")
	raw = strings.TrimSpace(raw)

	var items []map[string]any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}

	regions := make([]Region, 0, len(items))
	for _, item := range items {
		if len(regions) >= MaxRegions {
			break
		}
		label, ok := item["label"].(string)
		if !ok || label == "" {
			continue
		}
		boxRaw, ok := item["box_2d"].([]any)
		if !ok || len(boxRaw) != 4 {
			continue
		}
		box := make([]int, 4)
		valid := true
		for i, v := range boxRaw {
			f, ok := v.(float64)
			if !ok {
				valid = false
				break
			}
			box[i] = int(f)
		}
		if !valid {
			continue
		}
		regions = append(regions, Region{Label: label, Y0: box[0], X0: box[1], Y1: box[2], X1: box[3]})
	}
	return regions
}
