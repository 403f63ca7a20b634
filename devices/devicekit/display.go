package devicekit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mobile-next/omniclick/types"
)

type displayInfo struct {
	WidthPx           int     `json:"widthPx"`
	HeightPx          int     `json:"heightPx"`
	Density           float64 `json:"density"`
	StatusBarHeightPx int     `json:"statusBarHeightPx"`
}

func (c *Client) DisplayMetrics(ctx context.Context) (types.DisplayMetrics, error) {
	result, err := c.callWithTimeout(ctx, "device.display.info", map[string]interface{}{"deviceId": ""}, defaultCallTimeout)
	if err != nil {
		return types.DisplayMetrics{}, fmt.Errorf("failed to get display info: %w", err)
	}

	var info displayInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return types.DisplayMetrics{}, fmt.Errorf("failed to parse display info: %w", err)
	}
	if info.Density <= 0 || info.WidthPx <= 0 || info.HeightPx <= 0 {
		return types.DisplayMetrics{}, fmt.Errorf("agent reported an invalid display %+v", info)
	}

	return types.DisplayMetrics{
		Density:           info.Density,
		StatusBarHeightPx: info.StatusBarHeightPx,
		ScreenWidthPx:     info.WidthPx,
		ScreenHeightPx:    info.HeightPx,
	}, nil
}
