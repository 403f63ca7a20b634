package engine

import (
	"time"

	"github.com/mobile-next/omniclick/looper"
	"github.com/mobile-next/omniclick/overlay"
	"github.com/mobile-next/omniclick/utils"
)

// FocusState tells which surface currently receives touch and keyboard input.
type FocusState int

const (
	TouchCaptureOwnsInput FocusState = iota
	HudOwnsInput
)

func (s FocusState) String() string {
	if s == HudOwnsInput {
		return "hud"
	}
	return "touch-capture"
}

// FocusArbiter hands input to the HUD while it edits text and back to the
// touch-capture window afterwards. Giving input back is debounced so a
// software keyboard toggling focus and blur in quick succession does not
// flicker the overlay. All methods run on the engine loop.
type FocusArbiter struct {
	loop     *looper.Looper
	store    *overlay.Store
	debounce time.Duration

	state   FocusState
	pending *looper.Pending
}

func NewFocusArbiter(loop *looper.Looper, store *overlay.Store, debounce time.Duration) *FocusArbiter {
	return &FocusArbiter{
		loop:     loop,
		store:    store,
		debounce: debounce,
		state:    TouchCaptureOwnsInput,
	}
}

// RequestFocus cancels any pending clear and gives input to the HUD. The
// touch-capture window is shrunk so it cannot swallow keyboard touches.
func (f *FocusArbiter) RequestFocus() {
	f.cancelPending()

	f.state = HudOwnsInput
	f.store.GrantContentFocus()
	f.store.HideTouchCapture()
	utils.Verbose("focus: hud owns input")
}

// ClearFocus schedules the hand back to the touch-capture window. A second
// call before the debounce elapses restarts the wait from now.
func (f *FocusArbiter) ClearFocus() {
	f.cancelPending()

	var p *looper.Pending
	p = f.loop.PostDelayed(f.debounce, func() {
		if f.pending == p {
			f.pending = nil
		}
		f.applyClear()
	})
	f.pending = p
	utils.Verbose("focus: clear scheduled in %s", f.debounce)
}

// Cancel drops a scheduled clear without applying it.
func (f *FocusArbiter) Cancel() {
	f.cancelPending()
}

func (f *FocusArbiter) State() FocusState {
	return f.state
}

// ClearPending reports whether a debounced clear is waiting to fire.
func (f *FocusArbiter) ClearPending() bool {
	return f.pending != nil
}

func (f *FocusArbiter) applyClear() {
	f.state = TouchCaptureOwnsInput
	f.store.RevokeContentFocus()
	f.store.RestoreTouchCapture()
	utils.Verbose("focus: touch-capture owns input")
}

func (f *FocusArbiter) cancelPending() {
	if f.pending != nil {
		f.pending.Cancel()
		f.pending = nil
	}
}
