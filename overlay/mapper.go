package overlay

import (
	"github.com/mobile-next/omniclick/types"
)

// MapLogicalToPixel converts a HUD logical coordinate into display pixels.
// Once a full-canvas mapping is known the coordinate is placed proportionally
// inside the occupied region, clamped to its edges. Before that, a plain
// density scale is the best approximation available.
func MapLogicalToPixel(m types.CanvasMapping, density float64, x, y float64) types.Point {
	if !m.Valid() {
		return types.Point{X: x * density, Y: y * density}
	}

	ratioX := clamp01(x / m.CanvasWidthLogical)
	ratioY := clamp01(y / m.CanvasHeightLogical)

	return types.Point{
		X: float64(m.OffsetXPx) + ratioX*float64(m.CanvasWidthPx),
		Y: float64(m.OffsetYPx) + ratioY*float64(m.CanvasHeightPx),
	}
}

// ScaleRect converts a logical rect to pixels by density alone, truncating
// toward zero.
func ScaleRect(r types.OverlayRect, density float64) types.PixelRect {
	return types.PixelRect{
		X:      int(r.X * density),
		Y:      int(r.Y * density),
		Width:  int(r.Width * density),
		Height: int(r.Height * density),
	}
}

// MappingFromRect derives the canvas mapping declared by a full-canvas rect.
func MappingFromRect(r types.OverlayRect, px types.PixelRect) types.CanvasMapping {
	return types.CanvasMapping{
		CanvasWidthLogical:  r.Width,
		CanvasHeightLogical: r.Height,
		CanvasWidthPx:       px.Width,
		CanvasHeightPx:      px.Height,
		OffsetXPx:           px.X,
		OffsetYPx:           px.Y,
	}
}

func clamp01(v float64) float64 {
	// NaN compares false both ways and would otherwise leak through
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
