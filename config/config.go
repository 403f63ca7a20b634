// Package config loads omniclick settings from an ini file.
//
//	[server]
//	listen = localhost:12000
//	cors = false
//
//	[display]
//	density = 2.75
//	status_bar_height = 66
//	screen_width = 1080
//	screen_height = 2400
//
//	[timing]
//	settle_delay = 50ms
//	focus_debounce = 300ms
//
//	[backend]
//	type = adb
//	device = emulator-5554
//
//	[picker]
//	import = ~/scripts/latest.json
//
//	[saver]
//	dir = ~/scripts
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mobile-next/omniclick/types"
	"gopkg.in/ini.v1"
)

const (
	BackendHeadless  = "headless"
	BackendAdb       = "adb"
	BackendDevicekit = "devicekit"

	DefaultListen        = "localhost:12000"
	DefaultDevicekitHost = "localhost"
	DefaultDevicekitPort = 12004
	DefaultMinAPILevel   = 24
	DefaultDensity       = 2.0
)

type ServerConfig struct {
	Listen string
	CORS   bool
}

type TimingConfig struct {
	SettleDelay       time.Duration
	FocusDebounce     time.Duration
	TapDuration       time.Duration
	MinStrokeDuration time.Duration
	GestureTimeout    time.Duration
	PassthroughQueue  int
}

type BackendConfig struct {
	Type          string
	Device        string
	DevicekitHost string
	DevicekitPort int
	MinAPILevel   int
	ReadyTimeout  time.Duration // wait for the devicekit agent; zero checks once
}

type SaverConfig struct {
	Dir         string
	DefaultName string
}

type Config struct {
	Server  ServerConfig
	Display types.DisplayMetrics
	Timing  TimingConfig
	Backend BackendConfig
	// Picker maps a picker slot name to the file it reads.
	Picker map[string]string
	Saver  SaverConfig
	// DensitySet records that the file names a density, which a measured
	// density then does not replace.
	DensitySet bool
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen: DefaultListen,
		},
		Display: types.DisplayMetrics{
			Density: DefaultDensity,
		},
		Timing: TimingConfig{
			SettleDelay:       50 * time.Millisecond,
			FocusDebounce:     300 * time.Millisecond,
			TapDuration:       100 * time.Millisecond,
			MinStrokeDuration: 100 * time.Millisecond,
			GestureTimeout:    5 * time.Second,
			PassthroughQueue:  8,
		},
		Backend: BackendConfig{
			Type:          BackendHeadless,
			DevicekitHost: DefaultDevicekitHost,
			DevicekitPort: DefaultDevicekitPort,
			MinAPILevel:   DefaultMinAPILevel,
		},
		Picker: map[string]string{},
		Saver: SaverConfig{
			Dir:         ".",
			DefaultName: "script.json",
		},
	}
}

// DefaultPath returns ~/.omniclick/config.ini.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "omniclick.ini"
	}
	return filepath.Join(home, ".omniclick", "config.ini")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := ini.LoadSources(ini.LoadOptions{Loose: true, Insensitive: true}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := cfg.apply(f); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) apply(f *ini.File) error {
	server := f.Section("server")
	c.Server.Listen = server.Key("listen").MustString(c.Server.Listen)
	c.Server.CORS = server.Key("cors").MustBool(c.Server.CORS)

	display := f.Section("display")
	c.Display.Density = display.Key("density").MustFloat64(c.Display.Density)
	c.DensitySet = display.HasKey("density")
	c.Display.StatusBarHeightPx = display.Key("status_bar_height").MustInt(c.Display.StatusBarHeightPx)
	c.Display.ScreenWidthPx = display.Key("screen_width").MustInt(c.Display.ScreenWidthPx)
	c.Display.ScreenHeightPx = display.Key("screen_height").MustInt(c.Display.ScreenHeightPx)

	timing := f.Section("timing")
	c.Timing.SettleDelay = timing.Key("settle_delay").MustDuration(c.Timing.SettleDelay)
	c.Timing.FocusDebounce = timing.Key("focus_debounce").MustDuration(c.Timing.FocusDebounce)
	c.Timing.TapDuration = timing.Key("tap_duration").MustDuration(c.Timing.TapDuration)
	c.Timing.MinStrokeDuration = timing.Key("min_stroke_duration").MustDuration(c.Timing.MinStrokeDuration)
	c.Timing.GestureTimeout = timing.Key("gesture_timeout").MustDuration(c.Timing.GestureTimeout)
	c.Timing.PassthroughQueue = timing.Key("passthrough_queue").MustInt(c.Timing.PassthroughQueue)

	backend := f.Section("backend")
	c.Backend.Type = strings.ToLower(backend.Key("type").MustString(c.Backend.Type))
	c.Backend.Device = backend.Key("device").MustString(c.Backend.Device)
	c.Backend.DevicekitHost = backend.Key("devicekit_host").MustString(c.Backend.DevicekitHost)
	c.Backend.DevicekitPort = backend.Key("devicekit_port").MustInt(c.Backend.DevicekitPort)
	c.Backend.MinAPILevel = backend.Key("min_api_level").MustInt(c.Backend.MinAPILevel)
	c.Backend.ReadyTimeout = backend.Key("ready_timeout").MustDuration(c.Backend.ReadyTimeout)

	for _, key := range f.Section("picker").Keys() {
		c.Picker[key.Name()] = key.String()
	}

	saver := f.Section("saver")
	c.Saver.Dir = saver.Key("dir").MustString(c.Saver.Dir)
	c.Saver.DefaultName = saver.Key("default_name").MustString(c.Saver.DefaultName)

	return nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Display.Density <= 0 {
		return fmt.Errorf("display density must be positive, got %g", c.Display.Density)
	}
	if c.Display.ScreenWidthPx < 0 || c.Display.ScreenHeightPx < 0 {
		return fmt.Errorf("screen size must not be negative")
	}

	switch c.Backend.Type {
	case BackendHeadless, BackendAdb, BackendDevicekit:
	default:
		return fmt.Errorf("unknown backend type %q", c.Backend.Type)
	}

	if c.Backend.DevicekitPort <= 0 || c.Backend.DevicekitPort > 65535 {
		return fmt.Errorf("invalid devicekit port %d", c.Backend.DevicekitPort)
	}

	for name, d := range map[string]time.Duration{
		"settle_delay":    c.Timing.SettleDelay,
		"focus_debounce":  c.Timing.FocusDebounce,
		"gesture_timeout": c.Timing.GestureTimeout,
		"ready_timeout":   c.Backend.ReadyTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("timing %s must not be negative", name)
		}
	}

	if c.Timing.PassthroughQueue < 1 {
		return fmt.Errorf("passthrough_queue must be at least 1")
	}

	return nil
}

// Slots returns the configured picker slot names in order.
func (c *Config) Slots() []string {
	slots := make([]string, 0, len(c.Picker))
	for name := range c.Picker {
		slots = append(slots, name)
	}
	sort.Strings(slots)
	return slots
}
