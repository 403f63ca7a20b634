package devices

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/types"
	"github.com/mobile-next/omniclick/utils"
)

// baselineDPI is the density Android calls 1.0.
const baselineDPI = 160.0

type adbRunner func(ctx context.Context, args ...string) ([]byte, error)

// AndroidDevice synthesizes gestures on an adb-connected device with
// `input swipe`, which holds a zero-length swipe as a tap.
type AndroidDevice struct {
	id   string
	name string

	run adbRunner

	levelOnce sync.Once
	level     int
}

func NewAndroidDevice(id string) *AndroidDevice {
	d := &AndroidDevice{id: id, name: id}
	d.run = d.runAdbCommand
	return d
}

func (d *AndroidDevice) ID() string {
	return d.id
}

func (d *AndroidDevice) Name() string {
	return d.name
}

func (d *AndroidDevice) DeviceType() string {
	if strings.HasPrefix(d.id, "emulator-") {
		return "emulator"
	}
	return "real"
}

func (d *AndroidDevice) runAdbCommand(ctx context.Context, args ...string) ([]byte, error) {
	cmdArgs := append([]string{"-s", d.id}, args...)
	cmd := exec.CommandContext(ctx, getAdbPath(), cmdArgs...)
	return cmd.CombinedOutput()
}

// APILevel reads ro.build.version.sdk once. A device that cannot be queried
// reports 0, which disables gesture synthesis.
func (d *AndroidDevice) APILevel() int {
	d.levelOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		output, err := d.run(ctx, "shell", "getprop", "ro.build.version.sdk")
		if err != nil {
			utils.Warn("failed to read API level from %s: %v", d.id, err)
			return
		}

		level, err := strconv.Atoi(strings.TrimSpace(string(output)))
		if err != nil {
			utils.Warn("unexpected API level %q from %s", strings.TrimSpace(string(output)), d.id)
			return
		}
		d.level = level
	})
	return d.level
}

// Dispatch runs the stroke in the background and reports Completed once adb
// returns, Cancelled if it fails.
func (d *AndroidDevice) Dispatch(stroke gesture.Stroke, done func(gesture.Outcome)) bool {
	args := swipeArgs(stroke)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), stroke.Duration+10*time.Second)
		defer cancel()

		output, err := d.run(ctx, args...)
		if err != nil {
			utils.Warn("adb %s on %s failed: %v (%s)", strings.Join(args, " "), d.id, err, strings.TrimSpace(string(output)))
			done(gesture.Cancelled)
			return
		}
		done(gesture.Completed)
	}()

	return true
}

func swipeArgs(stroke gesture.Stroke) []string {
	px := func(v float64) string {
		return strconv.Itoa(int(math.Round(v)))
	}
	return []string{
		"shell", "input", "swipe",
		px(stroke.From.X), px(stroke.From.Y),
		px(stroke.To.X), px(stroke.To.Y),
		strconv.FormatInt(stroke.Duration.Milliseconds(), 10),
	}
}

// DisplayMetrics asks the window manager for the screen size and density.
// An override set with `wm size` wins over the physical value.
func (d *AndroidDevice) DisplayMetrics(ctx context.Context) (types.DisplayMetrics, error) {
	sizeOut, err := d.run(ctx, "shell", "wm", "size")
	if err != nil {
		return types.DisplayMetrics{}, fmt.Errorf("failed to get screen size: %w", err)
	}
	width, height, err := parseWmSize(string(sizeOut))
	if err != nil {
		return types.DisplayMetrics{}, err
	}

	densityOut, err := d.run(ctx, "shell", "wm", "density")
	if err != nil {
		return types.DisplayMetrics{}, fmt.Errorf("failed to get screen density: %w", err)
	}
	dpi, err := parseWmDensity(string(densityOut))
	if err != nil {
		return types.DisplayMetrics{}, err
	}

	density := float64(dpi) / baselineDPI
	return types.DisplayMetrics{
		Density:           density,
		StatusBarHeightPx: int(math.Round(24 * density)),
		ScreenWidthPx:     width,
		ScreenHeightPx:    height,
	}, nil
}

var (
	wmSizeRegex    = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)
	wmDensityRegex = regexp.MustCompile(`(Physical|Override) density:\s*(\d+)`)
)

func parseWmSize(output string) (int, int, error) {
	var width, height int
	for _, m := range wmSizeRegex.FindAllStringSubmatch(output, -1) {
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		if width == 0 || m[1] == "Override" {
			width, height = w, h
		}
	}
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("failed to parse screen size from %q", strings.TrimSpace(output))
	}
	return width, height, nil
}

func parseWmDensity(output string) (int, error) {
	var dpi int
	for _, m := range wmDensityRegex.FindAllStringSubmatch(output, -1) {
		v, _ := strconv.Atoi(m[2])
		if dpi == 0 || m[1] == "Override" {
			dpi = v
		}
	}
	if dpi == 0 {
		return 0, fmt.Errorf("failed to parse screen density from %q", strings.TrimSpace(output))
	}
	return dpi, nil
}

func parseAdbDevicesOutput(output string) []string {
	var ids []string

	lines := strings.Split(output, "\n")
	for i := 1; i < len(lines); i++ {
		parts := strings.Fields(strings.TrimSpace(lines[i]))
		if len(parts) == 2 && parts[1] == "device" {
			ids = append(ids, parts[0])
		}
	}

	return ids
}

// GetAndroidDevices lists the serials of connected, authorized devices.
func GetAndroidDevices(ctx context.Context) ([]*AndroidDevice, error) {
	output, err := exec.CommandContext(ctx, getAdbPath(), "devices").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to run 'adb devices': %w", err)
	}

	var devices []*AndroidDevice
	for _, id := range parseAdbDevicesOutput(string(output)) {
		d := NewAndroidDevice(id)
		d.name = getAndroidDeviceName(ctx, id)
		devices = append(devices, d)
	}
	return devices, nil
}

func getAndroidDeviceName(ctx context.Context, deviceID string) string {
	output, err := exec.CommandContext(ctx, getAdbPath(), "-s", deviceID, "shell", "getprop", "ro.product.model").CombinedOutput()
	if err == nil && len(output) > 0 {
		return strings.TrimSpace(string(output))
	}
	return deviceID
}

// getAdbPath prefers the SDK's platform-tools over whatever adb is on PATH.
func getAdbPath() string {
	if sdk := os.Getenv("ANDROID_HOME"); sdk != "" {
		adbPath := filepath.Join(sdk, "platform-tools", "adb")
		if runtime.GOOS == "windows" {
			adbPath += ".exe"
		}
		if utils.FileExists(adbPath) {
			return adbPath
		}
	}

	if adbPath, err := exec.LookPath("adb"); err == nil {
		return adbPath
	}

	return "adb"
}

// AdbPath is the adb binary gestures are sent through.
func AdbPath() string {
	return getAdbPath()
}
