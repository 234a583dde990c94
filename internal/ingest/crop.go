package ingest

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// cropRegion crops a PNG page raster to a pixel-space box (already
// clamped by the caller) and re-encodes the crop as PNG.
func cropRegion(pageEncoded []byte, y0, x0, y1, x1 int) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(pageEncoded))
	if err != nil {
		return nil, fmt.Errorf("decode page raster: %w", err)
	}

	rect := image.Rect(x0, y0, x1, y1)
	var cropped image.Image
	if sub, ok := src.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		cropped = sub.SubImage(rect)
	} else {
		dst := image.NewRGBA(rect)
		draw.Draw(dst, rect, src, rect.Min, draw.Src)
		cropped = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
