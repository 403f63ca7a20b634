package commands

import (
	"context"
	"fmt"
)

// TapRequest represents the parameters for a tap command. Logical
// coordinates are mapped through the HUD canvas; otherwise they are pixels.
type TapRequest struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Logical bool    `json:"-"`
}

// SwipeRequest represents the parameters for a swipe command
type SwipeRequest struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	DurationMs int64   `json:"durationMs"`
	Logical    bool    `json:"-"`
}

// PassthroughRequest asks the bridge to run a recorded gesture through to the
// application under the overlay and wait for its outcome.
type PassthroughRequest struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2,omitempty"`
	Y2         float64 `json:"y2,omitempty"`
	DurationMs int64   `json:"durationMs,omitempty"`
	Swipe      bool    `json:"-"`
}

// OverlayRectRequest reports the HUD's rect in logical units.
type OverlayRectRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func validatePoint(x, y float64) error {
	if x < 0 || y < 0 {
		return fmt.Errorf("x and y coordinates must be non-negative, got x=%g, y=%g", x, y)
	}
	return nil
}

// TapCommand performs a tap through the bridge
func TapCommand(ctx context.Context, c *Client, req TapRequest) *CommandResponse {
	if err := validatePoint(req.X, req.Y); err != nil {
		return NewErrorResponse(err)
	}

	method := "tap"
	if req.Logical {
		method = "performClick"
	}
	return c.call(ctx, method, map[string]float64{"x": req.X, "y": req.Y})
}

// SwipeCommand performs a swipe through the bridge
func SwipeCommand(ctx context.Context, c *Client, req SwipeRequest) *CommandResponse {
	if err := validatePoint(req.X1, req.Y1); err != nil {
		return NewErrorResponse(err)
	}
	if err := validatePoint(req.X2, req.Y2); err != nil {
		return NewErrorResponse(err)
	}
	if req.DurationMs < 0 {
		return NewErrorResponse(fmt.Errorf("duration must be non-negative, got %d", req.DurationMs))
	}

	method := "swipe"
	if req.Logical {
		method = "performSwipe"
	}
	return c.call(ctx, method, req)
}

// PassthroughCommand runs a recorded tap or swipe and waits for its outcome
func PassthroughCommand(ctx context.Context, c *Client, req PassthroughRequest) *CommandResponse {
	if err := validatePoint(req.X1, req.Y1); err != nil {
		return NewErrorResponse(err)
	}

	if !req.Swipe {
		return c.call(ctx, "dispatchRecordedGesture", map[string]interface{}{
			"x":    req.X1,
			"y":    req.Y1,
			"wait": true,
		})
	}

	if err := validatePoint(req.X2, req.Y2); err != nil {
		return NewErrorResponse(err)
	}
	return c.call(ctx, "dispatchRecordedSwipe", map[string]interface{}{
		"x1":         req.X1,
		"y1":         req.Y1,
		"x2":         req.X2,
		"y2":         req.Y2,
		"durationMs": req.DurationMs,
		"wait":       true,
	})
}

// OverlayRectCommand reports a HUD rect, as the HUD itself would
func OverlayRectCommand(ctx context.Context, c *Client, req OverlayRectRequest) *CommandResponse {
	if req.Width < 0 || req.Height < 0 {
		return NewErrorResponse(fmt.Errorf("width and height must be non-negative"))
	}
	return c.call(ctx, "reportOverlayRect", req)
}

// FocusCommand grants input focus to the HUD or starts the debounced release
func FocusCommand(ctx context.Context, c *Client, grant bool) *CommandResponse {
	if grant {
		return c.call(ctx, "requestInputFocus", nil)
	}
	return c.call(ctx, "clearInputFocus", nil)
}

// RecordingCommand toggles recording mode
func RecordingCommand(ctx context.Context, c *Client, enabled bool) *CommandResponse {
	return c.call(ctx, "setRecordingMode", map[string]bool{"enabled": enabled})
}
