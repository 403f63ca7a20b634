package devicekit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mobile-next/omniclick/overlay"
	"github.com/mobile-next/omniclick/types"
	"github.com/mobile-next/omniclick/utils"
)

// The agent hosts the overlay windows; the Client is their WindowManager.

type windowParams struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Focusable bool   `json:"focusable"`
	Touchable bool   `json:"touchable"`
}

func layoutParams(id overlay.WindowID, name string, layout types.WindowLayout) windowParams {
	return windowParams{
		ID:        string(id),
		Name:      name,
		X:         layout.X,
		Y:         layout.Y,
		Width:     layout.Width,
		Height:    layout.Height,
		Focusable: layout.Focusable,
		Touchable: layout.Touchable,
	}
}

func (c *Client) AddWindow(name string, layout types.WindowLayout) (overlay.WindowID, error) {
	result, err := c.call("device.overlay.add", layoutParams("", name, layout))
	if err != nil {
		return "", fmt.Errorf("failed to add window %s: %w", name, err)
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return "", fmt.Errorf("failed to parse device.overlay.add response: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("device.overlay.add returned no window id")
	}

	return overlay.WindowID(resp.ID), nil
}

func (c *Client) UpdateWindow(id overlay.WindowID, layout types.WindowLayout) error {
	_, err := c.call("device.overlay.update", layoutParams(id, "", layout))
	return windowError("update", id, err)
}

func (c *Client) RemoveWindow(id overlay.WindowID) error {
	_, err := c.call("device.overlay.remove", map[string]string{"id": string(id)})
	return windowError("remove", id, err)
}

func (c *Client) RequestFocus(id overlay.WindowID) error {
	_, err := c.call("device.overlay.focus", map[string]string{"id": string(id)})
	return windowError("focus", id, err)
}

// windowError maps the agent's window-not-found code onto overlay.ErrWindowGone.
func windowError(op string, id overlay.WindowID, err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) && rpcErr.Code == ErrCodeWindowNotFound {
		return fmt.Errorf("%s %s: %w", op, id, overlay.ErrWindowGone)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}

const touchNotification = "device.overlay.touch"

// OnTouch delivers raw touches the agent's touch-capture window reports.
func (c *Client) OnTouch(fn func(action string, x, y float64)) {
	c.OnNotification(func(method string, params json.RawMessage) {
		if method != touchNotification {
			utils.Verbose("DeviceKit notification %s ignored", method)
			return
		}

		var ev struct {
			Action string  `json:"action"`
			X      float64 `json:"x"`
			Y      float64 `json:"y"`
		}
		if err := json.Unmarshal(params, &ev); err != nil {
			utils.Warn("malformed %s notification: %v", method, err)
			return
		}
		fn(ev.Action, ev.X, ev.Y)
	})
}
