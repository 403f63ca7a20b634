package overlay

import (
	"errors"

	"github.com/mobile-next/omniclick/types"
)

// ErrWindowGone is returned by a WindowManager when the target window has
// already been torn down.
var ErrWindowGone = errors.New("window no longer exists")

// WindowID identifies a window owned by a WindowManager.
type WindowID string

const (
	ContentWindowName      = "content"
	TouchCaptureWindowName = "touch-capture"

	// OffscreenX parks the content window outside the visible display.
	OffscreenX = -10000
)

// WindowManager is the platform service that hosts the overlay windows. Calls
// are made from the engine loop only.
type WindowManager interface {
	AddWindow(name string, layout types.WindowLayout) (WindowID, error)
	UpdateWindow(id WindowID, layout types.WindowLayout) error
	RemoveWindow(id WindowID) error
	RequestFocus(id WindowID) error
}
