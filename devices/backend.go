package devices

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mobile-next/omniclick/config"
	"github.com/mobile-next/omniclick/devices/devicekit"
	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/overlay"
	"github.com/mobile-next/omniclick/types"
	"github.com/mobile-next/omniclick/utils"
)

// HeadlessAPILevel is what the headless backend claims, high enough for
// every gesture to be accepted.
const HeadlessAPILevel = 34

// ErrNoMetrics means the backend cannot measure the display; configured
// metrics have to be used instead.
var ErrNoMetrics = errors.New("backend cannot report display metrics")

// Backend bundles the platform primitives the engine drives.
type Backend interface {
	Name() string
	WindowManager() overlay.WindowManager
	Synthesizer() gesture.Synthesizer
	DisplayMetrics(ctx context.Context) (types.DisplayMetrics, error)
	Close() error
}

// TouchSource is implemented by backends whose touch-capture window reports
// raw touches back.
type TouchSource interface {
	OnTouch(fn func(action string, x, y float64)) error
}

// headlessBackend keeps windows in memory and records gestures.
type headlessBackend struct {
	wm    *overlay.HeadlessManager
	synth *gesture.Recorder
}

func (b *headlessBackend) Name() string                         { return config.BackendHeadless }
func (b *headlessBackend) WindowManager() overlay.WindowManager { return b.wm }
func (b *headlessBackend) Synthesizer() gesture.Synthesizer     { return b.synth }
func (b *headlessBackend) Close() error                         { return nil }

func (b *headlessBackend) DisplayMetrics(ctx context.Context) (types.DisplayMetrics, error) {
	return types.DisplayMetrics{}, ErrNoMetrics
}

// adbBackend injects through adb. adb cannot host windows, so they are kept
// in memory.
type adbBackend struct {
	device *AndroidDevice
	wm     *overlay.HeadlessManager
}

func (b *adbBackend) Name() string                         { return config.BackendAdb + ":" + b.device.ID() }
func (b *adbBackend) WindowManager() overlay.WindowManager { return b.wm }
func (b *adbBackend) Synthesizer() gesture.Synthesizer     { return b.device }
func (b *adbBackend) Close() error                         { return nil }

func (b *adbBackend) DisplayMetrics(ctx context.Context) (types.DisplayMetrics, error) {
	return b.device.DisplayMetrics(ctx)
}

// devicekitBackend has the on-device agent host the windows and inject.
type devicekitBackend struct {
	client *devicekit.Client
	addr   string
}

func (b *devicekitBackend) Name() string                         { return config.BackendDevicekit + ":" + b.addr }
func (b *devicekitBackend) WindowManager() overlay.WindowManager { return b.client }
func (b *devicekitBackend) Synthesizer() gesture.Synthesizer     { return b.client }
func (b *devicekitBackend) Close() error                         { return b.client.Close() }

func (b *devicekitBackend) DisplayMetrics(ctx context.Context) (types.DisplayMetrics, error) {
	return b.client.DisplayMetrics(ctx)
}

func (b *devicekitBackend) OnTouch(fn func(action string, x, y float64)) error {
	b.client.OnTouch(fn)
	return b.client.Connect()
}

const backendCacheSize = 8

var (
	backendCacheOnce sync.Once
	backendCache     *lru.Cache[string, Backend]
)

func cache() *lru.Cache[string, Backend] {
	backendCacheOnce.Do(func() {
		var err error
		backendCache, err = lru.NewWithEvict(backendCacheSize, func(key string, b Backend) {
			utils.Verbose("backend %s evicted", key)
			if err := b.Close(); err != nil {
				utils.Warn("failed to close backend %s: %v", key, err)
			}
		})
		if err != nil {
			panic(err)
		}
	})
	return backendCache
}

func backendKey(cfg config.BackendConfig) string {
	switch cfg.Type {
	case config.BackendAdb:
		return cfg.Type + "|" + cfg.Device
	case config.BackendDevicekit:
		return fmt.Sprintf("%s|%s:%d", cfg.Type, cfg.DevicekitHost, cfg.DevicekitPort)
	default:
		return cfg.Type
	}
}

// FindBackend returns the backend for cfg, reusing a previous one with the
// same identity.
func FindBackend(ctx context.Context, cfg config.BackendConfig) (Backend, error) {
	key := backendKey(cfg)
	if b, ok := cache().Get(key); ok {
		return b, nil
	}

	b, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cache().Add(key, b)
	utils.Verbose("backend %s ready", b.Name())
	return b, nil
}

// CloseBackends closes every cached backend.
func CloseBackends() {
	cache().Purge()
}

func newBackend(ctx context.Context, cfg config.BackendConfig) (Backend, error) {
	switch cfg.Type {
	case config.BackendHeadless, "":
		return &headlessBackend{
			wm:    overlay.NewHeadlessManager(),
			synth: gesture.NewRecorder(HeadlessAPILevel),
		}, nil

	case config.BackendAdb:
		id := cfg.Device
		if id == "" {
			devices, err := GetAndroidDevices(ctx)
			if err != nil {
				return nil, err
			}
			if len(devices) == 0 {
				return nil, fmt.Errorf("no android devices connected")
			}
			if len(devices) > 1 {
				utils.Warn("%d android devices connected, using %s", len(devices), devices[0].ID())
			}
			id = devices[0].ID()
		}
		return &adbBackend{device: NewAndroidDevice(id), wm: overlay.NewHeadlessManager()}, nil

	case config.BackendDevicekit:
		client := devicekit.NewClient(cfg.DevicekitHost, cfg.DevicekitPort)
		probe := client.HealthCheck
		if cfg.ReadyTimeout > 0 {
			probe = func(ctx context.Context) error { return client.WaitForReady(ctx, cfg.ReadyTimeout) }
		}
		if err := probe(ctx); err != nil {
			return nil, fmt.Errorf("devicekit agent at %s:%d is not reachable: %w", cfg.DevicekitHost, cfg.DevicekitPort, err)
		}
		return &devicekitBackend{
			client: client,
			addr:   fmt.Sprintf("%s:%d", cfg.DevicekitHost, cfg.DevicekitPort),
		}, nil

	default:
		return nil, fmt.Errorf("unknown backend type %q", cfg.Type)
	}
}

// ResolveMetrics fills in whatever the configured metrics leave zero from the
// backend. A configured screen size wins outright; keepDensity keeps the
// configured density when the backend measures another.
func ResolveMetrics(ctx context.Context, b Backend, configured types.DisplayMetrics, keepDensity bool) types.DisplayMetrics {
	m := configured
	if m.ScreenWidthPx > 0 && m.ScreenHeightPx > 0 {
		return m
	}

	measured, err := b.DisplayMetrics(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoMetrics) {
			utils.Warn("failed to read display metrics from %s: %v", b.Name(), err)
		}
		return m
	}

	m.ScreenWidthPx = measured.ScreenWidthPx
	m.ScreenHeightPx = measured.ScreenHeightPx
	if m.StatusBarHeightPx == 0 {
		m.StatusBarHeightPx = measured.StatusBarHeightPx
	}
	if measured.Density > 0 && !keepDensity {
		m.Density = measured.Density
	}
	return m
}
