package engine

import (
	"testing"
	"time"

	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/overlay"
	"github.com/mobile-next/omniclick/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func focusState(t *testing.T, h *harness) FocusState {
	t.Helper()
	var st FocusState
	require.NoError(t, h.engine.loop.Call(t.Context(), func() { st = h.engine.focus.State() }))
	return st
}

func TestRequestFocus_GrantsContentAndHidesTouchCapture(t *testing.T) {
	h := newHarness(t, newFakeSynth(gesture.Completed), nil)
	require.NoError(t, h.engine.ReportOverlayRect(types.OverlayRect{X: 10, Y: 20, Width: 100, Height: 50}))
	require.NoError(t, h.engine.RequestInputFocus())
	h.sync(t)

	assert.Equal(t, HudOwnsInput, focusState(t, h))
	assert.Equal(t, overlay.ContentWindowName, h.wm.Focused())

	content, _ := h.wm.Layout(overlay.ContentWindowName)
	assert.True(t, content.Focusable)
	assert.True(t, content.Touchable)

	touch, _ := h.wm.Layout(overlay.TouchCaptureWindowName)
	assert.True(t, touch.Hidden())
}

func TestClearFocus_AppliesAfterDebounce(t *testing.T) {
	h := newHarness(t, newFakeSynth(gesture.Completed), nil)
	require.NoError(t, h.engine.ReportOverlayRect(types.OverlayRect{X: 10, Y: 20, Width: 100, Height: 50}))
	require.NoError(t, h.engine.RequestInputFocus())
	h.sync(t)

	start := time.Now()
	require.NoError(t, h.engine.ClearInputFocus())

	// still the HUD's until the debounce fires
	time.Sleep(DefaultFocusDebounce / 2)
	assert.Equal(t, HudOwnsInput, focusState(t, h))

	require.Eventually(t, func() bool {
		return focusState(t, h) == TouchCaptureOwnsInput
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), DefaultFocusDebounce)

	touch, _ := h.wm.Layout(overlay.TouchCaptureWindowName)
	assert.Equal(t, types.WindowLayout{X: 30, Y: 60, Width: 300, Height: 150, Touchable: true}, touch)

	content, _ := h.wm.Layout(overlay.ContentWindowName)
	assert.False(t, content.Focusable)
	assert.False(t, content.Touchable)
}

func TestRequestFocus_CancelsPendingClear(t *testing.T) {
	h := newHarness(t, newFakeSynth(gesture.Completed), nil)
	require.NoError(t, h.engine.ReportOverlayRect(types.OverlayRect{X: 10, Y: 20, Width: 100, Height: 50}))
	require.NoError(t, h.engine.RequestInputFocus())
	require.NoError(t, h.engine.ClearInputFocus())

	time.Sleep(DefaultFocusDebounce / 3)
	require.NoError(t, h.engine.RequestInputFocus())
	h.sync(t)

	time.Sleep(DefaultFocusDebounce + 100*time.Millisecond)

	assert.Equal(t, HudOwnsInput, focusState(t, h))
	touch, _ := h.wm.Layout(overlay.TouchCaptureWindowName)
	assert.True(t, touch.Hidden(), "touch-capture window must not be restored")

	st, err := h.engine.Status(t.Context())
	require.NoError(t, err)
	assert.False(t, st.ClearPending)
}

func TestClearFocus_RescheduleRestartsWait(t *testing.T) {
	h := newHarness(t, newFakeSynth(gesture.Completed), nil)
	require.NoError(t, h.engine.RequestInputFocus())
	require.NoError(t, h.engine.ClearInputFocus())

	time.Sleep(DefaultFocusDebounce * 2 / 3)
	second := time.Now()
	require.NoError(t, h.engine.ClearInputFocus())

	// the first schedule would have fired by now
	time.Sleep(DefaultFocusDebounce * 2 / 3)
	assert.Equal(t, HudOwnsInput, focusState(t, h))

	require.Eventually(t, func() bool {
		return focusState(t, h) == TouchCaptureOwnsInput
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(second), DefaultFocusDebounce)
}

func TestClearFocus_WithoutRectLeavesTouchCaptureEmpty(t *testing.T) {
	h := newHarness(t, newFakeSynth(gesture.Completed), func(o *Options) { o.FocusDebounce = 20 * time.Millisecond })
	require.NoError(t, h.engine.RequestInputFocus())
	require.NoError(t, h.engine.ClearInputFocus())

	require.Eventually(t, func() bool {
		return focusState(t, h) == TouchCaptureOwnsInput
	}, time.Second, 5*time.Millisecond)

	touch, _ := h.wm.Layout(overlay.TouchCaptureWindowName)
	assert.True(t, touch.Hidden())
}

func TestFocusState_String(t *testing.T) {
	assert.Equal(t, "hud", HudOwnsInput.String())
	assert.Equal(t, "touch-capture", TouchCaptureOwnsInput.String())
}

func TestPassthroughState_String(t *testing.T) {
	assert.Equal(t, "overlays-restored", OverlaysRestored.String())
	assert.Equal(t, "unknown", PassthroughState(99).String())
}
