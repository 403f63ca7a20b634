package commands

import (
	"context"
	"time"

	"github.com/mobile-next/omniclick/config"
	"github.com/mobile-next/omniclick/devices"
	"github.com/mobile-next/omniclick/devices/devicekit"
)

type DeviceInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Backend  string `json:"backend"`
	APILevel int    `json:"apiLevel,omitempty"`
	State    string `json:"state"`
}

const agentProbeTimeout = 2 * time.Second

// DevicesCommand lists the targets a server could drive: adb devices and,
// when reachable, the configured on-device agent.
func DevicesCommand(ctx context.Context, cfg config.BackendConfig) *CommandResponse {
	list := []DeviceInfo{}

	androids, err := devices.GetAndroidDevices(ctx)
	if err != nil {
		return NewErrorResponse(err)
	}
	for _, d := range androids {
		list = append(list, DeviceInfo{
			ID:       d.ID(),
			Name:     d.Name(),
			Backend:  config.BackendAdb,
			APILevel: d.APILevel(),
			State:    "online",
		})
	}

	agent := DeviceInfo{
		ID:      "devicekit",
		Name:    "on-device agent",
		Backend: config.BackendDevicekit,
		State:   "offline",
	}
	client := devicekit.NewClient(cfg.DevicekitHost, cfg.DevicekitPort)
	probeCtx, cancel := context.WithTimeout(ctx, agentProbeTimeout)
	defer cancel()
	if err := client.HealthCheck(probeCtx); err == nil {
		agent.State = "online"
		agent.APILevel = client.APILevel()
	}
	_ = client.Close()
	list = append(list, agent)

	return NewSuccessResponse(map[string]interface{}{
		"devices": list,
	})
}
