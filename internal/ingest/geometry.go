package ingest

// clampBox clamps a detector-reported box to the page raster's bounds
// and reports whether the result is non-degenerate (y0<y1, x0<x1).
func clampBox(y0, x0, y1, x1, imgHeight, imgWidth int) (cy0, cx0, cy1, cx1 int, ok bool) {
	clamp := func(v, lo, hi int) int {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	cy0 = clamp(y0, 0, imgHeight-1)
	cx0 = clamp(x0, 0, imgWidth-1)
	cy1 = clamp(y1, 0, imgHeight)
	cx1 = clamp(x1, 0, imgWidth)
	ok = cy0 < cy1 && cx0 < cx1
	return
}
