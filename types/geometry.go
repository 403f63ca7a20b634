package types

// Point is a position in physical display pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OverlayRect is a rectangle reported by the HUD in its own logical units.
type OverlayRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsFullCanvas reports whether the rect declares the whole recording canvas.
func (r OverlayRect) IsFullCanvas() bool {
	return r.X == 0 && r.Y == 0
}

// PixelRect is a rectangle in physical display pixels.
type PixelRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CanvasMapping relates the HUD's full recording canvas to the pixels it occupies.
type CanvasMapping struct {
	CanvasWidthLogical  float64 `json:"canvasWidthLogical"`
	CanvasHeightLogical float64 `json:"canvasHeightLogical"`
	CanvasWidthPx       int     `json:"canvasWidthPx"`
	CanvasHeightPx      int     `json:"canvasHeightPx"`
	OffsetXPx           int     `json:"offsetXPx"`
	OffsetYPx           int     `json:"offsetYPx"`
}

// Valid reports whether the mapping has been established with non-degenerate sizes.
func (m CanvasMapping) Valid() bool {
	return m.CanvasWidthLogical > 0 && m.CanvasHeightLogical > 0 &&
		m.CanvasWidthPx > 0 && m.CanvasHeightPx > 0
}

// WindowLayout is the geometry and input flags of an overlay window as pushed
// to the platform window manager.
type WindowLayout struct {
	X         int  `json:"x"`
	Y         int  `json:"y"`
	Width     int  `json:"width"`
	Height    int  `json:"height"`
	Focusable bool `json:"focusable"`
	Touchable bool `json:"touchable"`
}

// Hidden reports whether the window occupies no area.
func (l WindowLayout) Hidden() bool {
	return l.Width == 0 || l.Height == 0
}
