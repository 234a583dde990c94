package ingest

import "strings"

// DefaultChunkSize and DefaultChunkOverlap are the fixed-width
// overlapping window parameters applied to a page's OCR text.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 64
)

// chunkText splits text into fixed-width overlapping windows. Empty or
// whitespace-only text yields no chunks. Text no longer than chunkSize
// yields exactly one chunk.
func chunkText(text string, chunkSize, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}
