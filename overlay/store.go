package overlay

import (
	"errors"
	"fmt"

	"github.com/mobile-next/omniclick/types"
	"github.com/mobile-next/omniclick/utils"
)

// Store holds the geometry and flags of the two stacked overlay windows and
// pushes every change to the WindowManager. It is owned by the engine loop and
// does no locking of its own.
type Store struct {
	wm      WindowManager
	metrics types.DisplayMetrics

	attached  bool
	touchID   WindowID
	contentID WindowID
	touch     types.WindowLayout
	content   types.WindowLayout

	lastRect types.OverlayRect
	hasRect  bool
	mapping  types.CanvasMapping
}

// Snapshot is a copy of the store state, safe to hand to other goroutines.
type Snapshot struct {
	Attached     bool                `json:"attached"`
	TouchCapture types.WindowLayout  `json:"touchCapture"`
	Content      types.WindowLayout  `json:"content"`
	LastRect     *types.OverlayRect  `json:"lastRect,omitempty"`
	Mapping      types.CanvasMapping `json:"mapping"`
}

func NewStore(wm WindowManager, metrics types.DisplayMetrics) *Store {
	return &Store{
		wm:      wm,
		metrics: metrics,
	}
}

// Attach creates the content window (full screen, input transparent) and the
// touch-capture window (empty until the HUD reports a rect).
func (s *Store) Attach() error {
	if s.attached {
		return nil
	}

	content := types.WindowLayout{
		Width:  s.metrics.ScreenWidthPx,
		Height: s.metrics.ScreenHeightPx,
	}
	contentID, err := s.wm.AddWindow(ContentWindowName, content)
	if err != nil {
		return fmt.Errorf("failed to add content window: %w", err)
	}

	touch := types.WindowLayout{Touchable: true}
	touchID, err := s.wm.AddWindow(TouchCaptureWindowName, touch)
	if err != nil {
		_ = s.wm.RemoveWindow(contentID)
		return fmt.Errorf("failed to add touch-capture window: %w", err)
	}

	s.contentID, s.content = contentID, content
	s.touchID, s.touch = touchID, touch
	s.attached = true
	utils.Verbose("overlay windows attached: content=%s touch=%s", contentID, touchID)
	return nil
}

// Detach removes both windows. Calling it again is a no-op.
func (s *Store) Detach() {
	if !s.attached {
		return
	}
	s.attached = false

	if err := s.wm.RemoveWindow(s.contentID); err != nil {
		utils.Warn("failed to remove content window: %v", err)
	}
	if err := s.wm.RemoveWindow(s.touchID); err != nil {
		utils.Warn("failed to remove touch-capture window: %v", err)
	}
	utils.Verbose("overlay windows detached")
}

func (s *Store) Attached() bool {
	return s.attached
}

// ApplyOverlayRect records a HUD rect, re-derives the canvas mapping when the
// rect declares the full canvas, and moves the touch-capture window over it.
func (s *Store) ApplyOverlayRect(rect types.OverlayRect) {
	s.lastRect = rect
	s.hasRect = true

	px := ScaleRect(rect, s.metrics.Density)
	if rect.IsFullCanvas() {
		s.mapping = MappingFromRect(rect, px)
		utils.Verbose("full canvas mapping: logical(%gx%g) px(%dx%d) offset(%d,%d)",
			s.mapping.CanvasWidthLogical, s.mapping.CanvasHeightLogical,
			s.mapping.CanvasWidthPx, s.mapping.CanvasHeightPx,
			s.mapping.OffsetXPx, s.mapping.OffsetYPx)
	}

	s.setTouchGeometry(px)
}

// HideTouchCapture shrinks the touch-capture window to nothing without
// removing it.
func (s *Store) HideTouchCapture() {
	s.setTouchGeometry(types.PixelRect{X: s.touch.X, Y: s.touch.Y})
}

// RestoreTouchCapture puts the touch-capture window back over the last rect.
func (s *Store) RestoreTouchCapture() {
	if !s.hasRect {
		return
	}
	s.setTouchGeometry(ScaleRect(s.lastRect, s.metrics.Density))
}

// HideContentWindow parks the content window off screen, input transparent.
// It is never removed so whatever runs inside it keeps running.
func (s *Store) HideContentWindow() {
	layout := s.content
	layout.X = OffscreenX
	layout.Focusable = false
	layout.Touchable = false
	s.pushContent(layout)
}

// RestoreContentWindow moves the content window back on screen. It stays
// input transparent; only a focus grant lifts that.
func (s *Store) RestoreContentWindow() {
	layout := s.content
	layout.X = 0
	layout.Focusable = false
	layout.Touchable = false
	s.pushContent(layout)
}

// GrantContentFocus makes the content window focusable and touchable and asks
// the platform to give it input focus.
func (s *Store) GrantContentFocus() {
	layout := s.content
	layout.Focusable = true
	layout.Touchable = true
	s.pushContent(layout)

	if !s.attached {
		return
	}
	if err := s.wm.RequestFocus(s.contentID); err != nil {
		s.logFailure("request focus", s.contentID, err)
	}
}

// RevokeContentFocus re-asserts the input transparent flags.
func (s *Store) RevokeContentFocus() {
	layout := s.content
	layout.Focusable = false
	layout.Touchable = false
	s.pushContent(layout)
}

// Mapping returns the last established canvas mapping.
func (s *Store) Mapping() types.CanvasMapping {
	return s.mapping
}

func (s *Store) Metrics() types.DisplayMetrics {
	return s.metrics
}

// TouchCapture returns the touch-capture window layout as last applied.
func (s *Store) TouchCapture() types.WindowLayout {
	return s.touch
}

// Content returns the content window layout as last applied.
func (s *Store) Content() types.WindowLayout {
	return s.content
}

func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Attached:     s.attached,
		TouchCapture: s.touch,
		Content:      s.content,
		Mapping:      s.mapping,
	}
	if s.hasRect {
		rect := s.lastRect
		snap.LastRect = &rect
	}
	return snap
}

func (s *Store) setTouchGeometry(px types.PixelRect) {
	layout := s.touch
	layout.X = px.X
	layout.Y = px.Y
	layout.Width = px.Width
	layout.Height = px.Height
	s.pushTouch(layout)
}

func (s *Store) pushTouch(layout types.WindowLayout) {
	if !s.attached {
		utils.Verbose("touch-capture update ignored, windows detached")
		return
	}
	if err := s.wm.UpdateWindow(s.touchID, layout); err != nil {
		s.logFailure("update", s.touchID, err)
		return
	}
	s.touch = layout
}

func (s *Store) pushContent(layout types.WindowLayout) {
	if !s.attached {
		utils.Verbose("content update ignored, windows detached")
		return
	}
	if err := s.wm.UpdateWindow(s.contentID, layout); err != nil {
		s.logFailure("update", s.contentID, err)
		return
	}
	s.content = layout
}

func (s *Store) logFailure(op string, id WindowID, err error) {
	if errors.Is(err, ErrWindowGone) {
		utils.Warn("%s on window %s skipped: %v", op, id, err)
		return
	}
	utils.Error("%s on window %s failed: %v", op, id, err)
}
