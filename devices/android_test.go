package devices

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/types"
)

// fakeAdb answers adb invocations from a table keyed by the joined arguments.
type fakeAdb struct {
	mu      sync.Mutex
	replies map[string]string
	fail    map[string]error
	calls   [][]string
}

func (f *fakeAdb) run(ctx context.Context, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args)
	key := strings.Join(args, " ")
	if err, ok := f.fail[key]; ok {
		return []byte("error: " + err.Error()), err
	}
	return []byte(f.replies[key]), nil
}

func (f *fakeAdb) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func newFakeDevice(f *fakeAdb) *AndroidDevice {
	d := NewAndroidDevice("emulator-5554")
	d.run = f.run
	return d
}

func TestParseWmSize(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{"physical only", "Physical size: 1080x2400\n", 1080, 2400, false},
		{"override wins", "Physical size: 1440x3120\nOverride size: 1080x2340\n", 1080, 2340, false},
		{"garbage", "error: no devices/emulators found", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := parseWmSize(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseWmSize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if w != tt.wantWidth || h != tt.wantHeight {
				t.Errorf("parseWmSize() = %dx%d, want %dx%d", w, h, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestParseWmDensity(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    int
		wantErr bool
	}{
		{"physical only", "Physical density: 420\n", 420, false},
		{"override wins", "Physical density: 560\nOverride density: 480\n", 480, false},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWmDensity(tt.output)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseWmDensity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseWmDensity() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseAdbDevicesOutput(t *testing.T) {
	output := "List of devices attached\nemulator-5554\tdevice\nR5CR1234567\tunauthorized\n0123456789ABCDEF\tdevice\n\n"
	got := parseAdbDevicesOutput(output)
	want := []string{"emulator-5554", "0123456789ABCDEF"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseAdbDevicesOutput() = %v, want %v", got, want)
	}
}

func TestAndroidDevice_DeviceType(t *testing.T) {
	if got := NewAndroidDevice("emulator-5554").DeviceType(); got != "emulator" {
		t.Errorf("DeviceType() = %q, want emulator", got)
	}
	if got := NewAndroidDevice("R5CR1234567").DeviceType(); got != "real" {
		t.Errorf("DeviceType() = %q, want real", got)
	}
}

func TestAndroidDevice_APILevel(t *testing.T) {
	f := &fakeAdb{replies: map[string]string{"shell getprop ro.build.version.sdk": "33\n"}}
	d := newFakeDevice(f)

	if got := d.APILevel(); got != 33 {
		t.Errorf("APILevel() = %d, want 33", got)
	}
	// cached
	d.APILevel()
	if n := len(f.Calls()); n != 1 {
		t.Errorf("expected 1 adb call, got %d", n)
	}
}

func TestAndroidDevice_APILevelUnreadable(t *testing.T) {
	f := &fakeAdb{fail: map[string]error{"shell getprop ro.build.version.sdk": errors.New("device offline")}}
	d := newFakeDevice(f)

	if got := d.APILevel(); got != 0 {
		t.Errorf("APILevel() = %d, want 0", got)
	}
}

func TestAndroidDevice_DispatchTap(t *testing.T) {
	f := &fakeAdb{}
	d := newFakeDevice(f)

	outcome := make(chan gesture.Outcome, 1)
	stroke := gesture.TapStroke(types.Point{X: 300.4, Y: 449.6}, 0, gesture.MinStrokeDuration)
	if !d.Dispatch(stroke, func(o gesture.Outcome) { outcome <- o }) {
		t.Fatal("Dispatch() rejected the stroke")
	}

	select {
	case o := <-outcome:
		if o != gesture.Completed {
			t.Errorf("outcome = %v, want completed", o)
		}
	case <-time.After(time.Second):
		t.Fatal("no outcome")
	}

	want := []string{"shell", "input", "swipe", "300", "450", "300", "450", "100"}
	if calls := f.Calls(); len(calls) != 1 || !reflect.DeepEqual(calls[0], want) {
		t.Errorf("adb calls = %v, want [%v]", calls, want)
	}
}

func TestAndroidDevice_DispatchFailureCancels(t *testing.T) {
	f := &fakeAdb{fail: map[string]error{"shell input swipe 1 2 3 4 250": errors.New("exit status 1")}}
	d := newFakeDevice(f)

	outcome := make(chan gesture.Outcome, 1)
	stroke := gesture.SwipeStroke(types.Point{X: 1, Y: 2}, types.Point{X: 3, Y: 4}, 250*time.Millisecond, gesture.MinStrokeDuration)
	d.Dispatch(stroke, func(o gesture.Outcome) { outcome <- o })

	select {
	case o := <-outcome:
		if o != gesture.Cancelled {
			t.Errorf("outcome = %v, want cancelled", o)
		}
	case <-time.After(time.Second):
		t.Fatal("no outcome")
	}
}

func TestAndroidDevice_DisplayMetrics(t *testing.T) {
	f := &fakeAdb{replies: map[string]string{
		"shell wm size":    "Physical size: 1080x2400\n",
		"shell wm density": "Physical density: 480\n",
	}}
	d := newFakeDevice(f)

	got, err := d.DisplayMetrics(context.Background())
	if err != nil {
		t.Fatalf("DisplayMetrics() error = %v", err)
	}

	want := types.DisplayMetrics{Density: 3, StatusBarHeightPx: 72, ScreenWidthPx: 1080, ScreenHeightPx: 2400}
	if got != want {
		t.Errorf("DisplayMetrics() = %+v, want %+v", got, want)
	}
}
