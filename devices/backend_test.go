package devices

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/mobile-next/omniclick/config"
	"github.com/mobile-next/omniclick/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBackend_HeadlessIsCached(t *testing.T) {
	cfg := config.BackendConfig{Type: config.BackendHeadless}

	a, err := FindBackend(context.Background(), cfg)
	require.NoError(t, err)
	b, err := FindBackend(context.Background(), cfg)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "headless", a.Name())
	assert.Equal(t, HeadlessAPILevel, a.Synthesizer().APILevel())

	CloseBackends()
	c, err := FindBackend(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestFindBackend_AdbWithExplicitDevice(t *testing.T) {
	b, err := FindBackend(context.Background(), config.BackendConfig{Type: config.BackendAdb, Device: "emulator-5554"})
	require.NoError(t, err)
	assert.Equal(t, "adb:emulator-5554", b.Name())
	assert.IsType(t, &AndroidDevice{}, b.Synthesizer())
}

func TestFindBackend_Unknown(t *testing.T) {
	_, err := FindBackend(context.Background(), config.BackendConfig{Type: "bluetooth"})
	assert.Error(t, err)
}

func TestFindBackend_DevicekitUnreachable(t *testing.T) {
	_, err := FindBackend(context.Background(), config.BackendConfig{
		Type:          config.BackendDevicekit,
		DevicekitHost: "localhost",
		DevicekitPort: 1,
	})
	assert.Error(t, err)
}

func TestFindBackend_DevicekitWaitsForAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	b, err := FindBackend(context.Background(), config.BackendConfig{
		Type:          config.BackendDevicekit,
		DevicekitHost: u.Hostname(),
		DevicekitPort: port,
		ReadyTimeout:  2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "devicekit:"+u.Host, b.Name())
	assert.Implements(t, (*TouchSource)(nil), b)

	CloseBackends()
}

func TestBackendKey(t *testing.T) {
	tests := []struct {
		cfg  config.BackendConfig
		want string
	}{
		{config.BackendConfig{Type: "headless", Device: "ignored"}, "headless"},
		{config.BackendConfig{Type: "adb", Device: "R5CR"}, "adb|R5CR"},
		{config.BackendConfig{Type: "devicekit", DevicekitHost: "10.0.0.2", DevicekitPort: 12004}, "devicekit|10.0.0.2:12004"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backendKey(tt.cfg))
	}
}

type metricsBackend struct {
	headlessBackend
	m   types.DisplayMetrics
	err error
}

func (b *metricsBackend) DisplayMetrics(ctx context.Context) (types.DisplayMetrics, error) {
	return b.m, b.err
}

func TestResolveMetrics(t *testing.T) {
	measured := types.DisplayMetrics{Density: 2.625, StatusBarHeightPx: 63, ScreenWidthPx: 1080, ScreenHeightPx: 2340}

	t.Run("configured size wins", func(t *testing.T) {
		cfg := types.DisplayMetrics{Density: 3, ScreenWidthPx: 1200, ScreenHeightPx: 2400}
		got := ResolveMetrics(context.Background(), &metricsBackend{m: measured}, cfg, false)
		assert.Equal(t, cfg, got)
	})

	t.Run("measured fills zeros", func(t *testing.T) {
		got := ResolveMetrics(context.Background(), &metricsBackend{m: measured}, types.DisplayMetrics{Density: 2}, false)
		assert.Equal(t, measured, got)
	})

	t.Run("measurement failure keeps configured", func(t *testing.T) {
		cfg := types.DisplayMetrics{Density: 2}
		got := ResolveMetrics(context.Background(), &metricsBackend{err: errors.New("offline")}, cfg, false)
		assert.Equal(t, cfg, got)
	})

	t.Run("configured density kept over measured", func(t *testing.T) {
		got := ResolveMetrics(context.Background(), &metricsBackend{m: measured}, types.DisplayMetrics{Density: 3}, true)
		assert.Equal(t, 3.0, got.Density)
		assert.Equal(t, 1080, got.ScreenWidthPx)
		assert.Equal(t, 2340, got.ScreenHeightPx)
		assert.Equal(t, 63, got.StatusBarHeightPx)
	})
}
