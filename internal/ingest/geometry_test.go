package ingest

import "testing"

func TestClampBoxWithinBounds(t *testing.T) {
	y0, x0, y1, x1, ok := clampBox(10, 20, 100, 200, 500, 500)
	if !ok {
		t.Fatalf("expected box to be valid")
	}
	if y0 != 10 || x0 != 20 || y1 != 100 || x1 != 200 {
		t.Fatalf("got (%d,%d,%d,%d), want unchanged box", y0, x0, y1, x1)
	}
}

func TestClampBoxOutOfBounds(t *testing.T) {
	y0, x0, y1, x1, ok := clampBox(-5, -5, 1000, 1000, 300, 400)
	if !ok {
		t.Fatalf("expected clamped box to still be valid")
	}
	if y0 != 0 || x0 != 0 {
		t.Fatalf("got origin (%d,%d), want (0,0)", y0, x0)
	}
	if y1 != 300 || x1 != 400 {
		t.Fatalf("got far corner (%d,%d), want (300,400)", y1, x1)
	}
}

func TestClampBoxDegenerateReportsInvalid(t *testing.T) {
	_, _, _, _, ok := clampBox(50, 50, 50, 50, 500, 500)
	if ok {
		t.Fatalf("expected degenerate zero-area box to be invalid")
	}

	_, _, _, _, ok = clampBox(100, 100, 50, 50, 500, 500)
	if ok {
		t.Fatalf("expected box with y1<y0 and x1<x0 to be invalid")
	}
}
