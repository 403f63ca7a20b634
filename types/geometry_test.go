package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlayRect_IsFullCanvas(t *testing.T) {
	assert.True(t, OverlayRect{X: 0, Y: 0, Width: 360, Height: 640}.IsFullCanvas())
	assert.True(t, OverlayRect{}.IsFullCanvas())
	assert.False(t, OverlayRect{X: 10, Y: 0, Width: 5, Height: 5}.IsFullCanvas())
	assert.False(t, OverlayRect{X: 0, Y: 0.5, Width: 5, Height: 5}.IsFullCanvas())
}

func TestCanvasMapping_Valid(t *testing.T) {
	tests := []struct {
		name    string
		mapping CanvasMapping
		want    bool
	}{
		{"zero value", CanvasMapping{}, false},
		{"complete", CanvasMapping{CanvasWidthLogical: 360, CanvasHeightLogical: 640, CanvasWidthPx: 1080, CanvasHeightPx: 1920}, true},
		{"missing logical height", CanvasMapping{CanvasWidthLogical: 360, CanvasWidthPx: 1080, CanvasHeightPx: 1920}, false},
		{"missing pixel width", CanvasMapping{CanvasWidthLogical: 360, CanvasHeightLogical: 640, CanvasHeightPx: 1920}, false},
		{"negative logical width", CanvasMapping{CanvasWidthLogical: -1, CanvasHeightLogical: 640, CanvasWidthPx: 1080, CanvasHeightPx: 1920}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mapping.Valid())
		})
	}
}

func TestWindowLayout_Hidden(t *testing.T) {
	assert.True(t, WindowLayout{}.Hidden())
	assert.True(t, WindowLayout{Width: 10}.Hidden())
	assert.False(t, WindowLayout{Width: 10, Height: 10}.Hidden())
}
