package commands

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/mobile-next/omniclick/devices"
	"github.com/mobile-next/omniclick/utils"
)

type DoctorInfo struct {
	Version       string `json:"version"`
	OS            string `json:"os"`
	OSVersion     string `json:"os_version"`
	AndroidHome   string `json:"android_home"`
	ADBPath       string `json:"adb_path"`
	ADBVersion    string `json:"adb_version,omitempty"`
	ConfigPath    string `json:"config_path"`
	ConfigExists  bool   `json:"config_exists"`
	ServerRunning bool   `json:"server_running"`
	ServerError   string `json:"server_error,omitempty"`
}

func getAdbVersion(adbPath string) string {
	if adbPath == "" {
		return ""
	}

	cmd := exec.Command(adbPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ""
	}

	// parse the output to get just the version line
	lines := strings.Split(string(output), "\n")
	for _, line := range lines {
		if strings.Contains(line, "Android Debug Bridge version") {
			return strings.TrimSpace(line)
		}
	}

	return strings.TrimSpace(string(output))
}

func getOSVersion() string {
	switch runtime.GOOS {
	case "darwin":
		cmd := exec.Command("sw_vers", "-productVersion")
		output, err := cmd.CombinedOutput()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(output))
	case "windows":
		cmd := exec.Command("cmd", "/c", "ver")
		output, err := cmd.CombinedOutput()
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(output))
	case "linux":
		data, err := os.ReadFile("/etc/os-release")
		if err != nil {
			return ""
		}
		return parseOSRelease(string(data))
	default:
		return ""
	}
}

func parseOSRelease(data string) string {
	for _, line := range strings.Split(data, "\n") {
		if strings.HasPrefix(line, "PRETTY_NAME=") {
			return strings.Trim(strings.TrimPrefix(line, "PRETTY_NAME="), "\"")
		}
	}
	return ""
}

// DoctorCommand performs system diagnostics and returns information about the
// environment, including whether a bridge server answers at the client's address.
func DoctorCommand(ctx context.Context, version, configPath string, c *Client) *CommandResponse {
	info := DoctorInfo{
		Version:      version,
		OS:           runtime.GOOS,
		OSVersion:    getOSVersion(),
		AndroidHome:  os.Getenv("ANDROID_HOME"),
		ADBPath:      devices.AdbPath(),
		ConfigPath:   configPath,
		ConfigExists: utils.FileExists(configPath),
	}

	info.ADBVersion = getAdbVersion(info.ADBPath)

	if c != nil {
		if _, err := c.Call(ctx, "status", nil); err != nil {
			info.ServerError = err.Error()
		} else {
			info.ServerRunning = true
		}
	}

	return NewSuccessResponse(info)
}
