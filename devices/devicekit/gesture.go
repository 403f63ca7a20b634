package devicekit

import (
	"context"
	"encoding/json"
	"math"

	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/utils"
)

// APILevel asks the agent for the platform level once and caches the answer.
// An unreachable agent reports 0.
func (c *Client) APILevel() int {
	c.apiOnce.Do(func() {
		result, err := c.call("device.info", map[string]interface{}{"deviceId": ""})
		if err != nil {
			utils.Warn("failed to read API level from DeviceKit: %v", err)
			return
		}

		var info struct {
			APILevel int `json:"apiLevel"`
		}
		if err := json.Unmarshal(result, &info); err != nil {
			utils.Warn("failed to parse device.info response: %v", err)
			return
		}
		c.apiLevel = info.APILevel
	})
	return c.apiLevel
}

// Dispatch sends the stroke as a press/move/release sequence. The agent
// answers once the gesture has finished, which becomes the terminal outcome.
func (c *Client) Dispatch(stroke gesture.Stroke, done func(gesture.Outcome)) bool {
	if err := c.connect(); err != nil {
		utils.Warn("gesture %s not sent: %v", stroke, err)
		return false
	}

	params := map[string]interface{}{
		"actions":  strokeActions(stroke),
		"deviceId": "",
	}

	go func() {
		_, err := c.callWithTimeout(context.Background(), "device.io.gesture", params, stroke.Duration+defaultCallTimeout)
		if err != nil {
			utils.Warn("gesture %s cancelled: %v", stroke, err)
			done(gesture.Cancelled)
			return
		}
		done(gesture.Completed)
	}()

	return true
}

type deviceKitAction struct {
	Type     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Duration float64 `json:"duration"`
	Button   int     `json:"button"`
}

// strokeActions expresses a stroke in the agent's press/move/release form:
// press at the start, travel to the end over the stroke's duration (seconds),
// release there. Coordinates are whole pixels.
func strokeActions(stroke gesture.Stroke) []deviceKitAction {
	fromX, fromY := math.Round(stroke.From.X), math.Round(stroke.From.Y)
	toX, toY := math.Round(stroke.To.X), math.Round(stroke.To.Y)

	return []deviceKitAction{
		{Type: "press", X: fromX, Y: fromY},
		{Type: "move", X: toX, Y: toY, Duration: stroke.Duration.Seconds()},
		{Type: "release", X: toX, Y: toY},
	}
}
