// Package engine coordinates the overlay windows, the focus arbiter and the
// gesture dispatcher behind a single owner. Every exported method may be
// called from any goroutine; state is only touched on the engine loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mobile-next/omniclick/files"
	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/looper"
	"github.com/mobile-next/omniclick/overlay"
	"github.com/mobile-next/omniclick/types"
	"github.com/mobile-next/omniclick/utils"
)

// ErrClosed is returned by operations on an engine that has been closed.
var ErrClosed = errors.New("engine closed")

const (
	DefaultSettleDelay      = 50 * time.Millisecond
	DefaultFocusDebounce    = 300 * time.Millisecond
	DefaultGestureTimeout   = 5 * time.Second
	DefaultPassthroughQueue = 8
)

// TouchEvent is a raw touch seen by the touch-capture window. Coordinates are
// screen pixels when reported by the platform and content-window pixels when
// forwarded to the HUD.
type TouchEvent struct {
	Action string  `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// HUD receives what the engine pushes back to the content surface. Its
// methods run on the engine loop and must not block.
type HUD interface {
	FilePicked(slot, fileName, content string)
	Touch(ev TouchEvent)
}

type Options struct {
	Metrics       types.DisplayMetrics
	WindowManager overlay.WindowManager
	Synthesizer   gesture.Synthesizer
	Picker        files.Picker
	Saver         files.Saver
	HUD           HUD

	// OnClose asks the hosting process to stop. It runs on its own goroutine
	// after both windows are gone.
	OnClose func()

	SettleDelay       time.Duration
	FocusDebounce     time.Duration
	GestureTimeout    time.Duration
	TapDuration       time.Duration
	MinStrokeDuration time.Duration
	MinAPILevel       int
	PassthroughQueue  int
}

type Engine struct {
	opts Options

	loop       *looper.Looper
	store      *overlay.Store
	dispatcher *gesture.Dispatcher
	focus      *FocusArbiter
	controller *Controller

	recording atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	stopOnce  sync.Once

	// owned by the loop
	hudRect *types.PixelRect

	ctx    context.Context
	cancel context.CancelFunc
}

func New(opts Options) *Engine {
	if opts.WindowManager == nil {
		opts.WindowManager = overlay.NewHeadlessManager()
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.FocusDebounce <= 0 {
		opts.FocusDebounce = DefaultFocusDebounce
	}
	if opts.GestureTimeout <= 0 {
		opts.GestureTimeout = DefaultGestureTimeout
	}
	if opts.PassthroughQueue <= 0 {
		opts.PassthroughQueue = DefaultPassthroughQueue
	}

	loop := looper.New()
	store := overlay.NewStore(opts.WindowManager, opts.Metrics)
	dispatcher := gesture.NewDispatcher(opts.Synthesizer, gesture.Options{
		MinAPILevel:       opts.MinAPILevel,
		TapDuration:       opts.TapDuration,
		MinStrokeDuration: opts.MinStrokeDuration,
	})

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		opts:       opts,
		loop:       loop,
		store:      store,
		dispatcher: dispatcher,
		focus:      NewFocusArbiter(loop, store, opts.FocusDebounce),
		controller: NewController(loop, store, dispatcher, opts.SettleDelay, opts.GestureTimeout, opts.PassthroughQueue),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start runs the loop and creates both overlay windows.
func (e *Engine) Start(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}

	e.loop.Start()
	e.controller.Start()

	var attachErr error
	err := e.loop.Call(ctx, func() {
		attachErr = e.store.Attach()
	})
	if err != nil {
		return err
	}
	if attachErr != nil {
		return fmt.Errorf("failed to attach overlay windows: %w", attachErr)
	}

	if !e.dispatcher.Supported() {
		utils.Warn("gesture synthesis not supported on this platform, gestures are no-ops")
	}

	utils.Info("engine started (density %.2f, screen %dx%d)",
		e.opts.Metrics.Density, e.opts.Metrics.ScreenWidthPx, e.opts.Metrics.ScreenHeightPx)
	return nil
}

// Stop ends the passthrough worker and the loop. Close should be used to
// tear the overlay down; Stop only releases goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.cancel()
		e.controller.Stop()
		e.loop.Stop()
	})
}

// Close removes both windows and asks the host to stop. Calling it again is a
// no-op.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)

		// the loop may never have been started
		e.loop.Start()
		err := e.loop.Call(context.Background(), func() {
			e.focus.Cancel()
			e.store.Detach()
		})
		if err != nil {
			utils.Warn("close: loop unavailable: %v", err)
		}

		e.Stop()
		utils.Info("engine closed")

		if e.opts.OnClose != nil {
			go e.opts.OnClose()
		}
	})
	return nil
}

func (e *Engine) Closed() bool {
	return e.closed.Load()
}

// post runs fn on the loop unless the engine is closed.
func (e *Engine) post(op string, fn func()) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if !e.loop.Post(fn) {
		utils.Warn("%s dropped: %v", op, looper.ErrStopped)
		return ErrClosed
	}
	return nil
}

func (e *Engine) ReportOverlayRect(rect types.OverlayRect) error {
	return e.post("reportOverlayRect", func() {
		e.store.ApplyOverlayRect(rect)
	})
}

// Tap dispatches a tap at screen pixels, without mapping.
func (e *Engine) Tap(x, y float64) error {
	return e.post("tap", func() {
		e.watch("tap", e.dispatcher.Tap(types.Point{X: x, Y: y}))
	})
}

// PerformClick maps a logical HUD coordinate and taps there.
func (e *Engine) PerformClick(x, y float64) error {
	return e.post("performClick", func() {
		p := e.mapPoint(x, y)
		e.watch("performClick", e.dispatcher.Tap(p))
	})
}

// Swipe dispatches a swipe between screen pixels, without mapping.
func (e *Engine) Swipe(x1, y1, x2, y2 float64, duration time.Duration) error {
	return e.post("swipe", func() {
		from := types.Point{X: x1, Y: y1}
		to := types.Point{X: x2, Y: y2}
		e.watch("swipe", e.dispatcher.Swipe(from, to, duration))
	})
}

func (e *Engine) PerformSwipe(x1, y1, x2, y2 float64, duration time.Duration) error {
	return e.post("performSwipe", func() {
		from := e.mapPoint(x1, y1)
		to := e.mapPoint(x2, y2)
		e.watch("performSwipe", e.dispatcher.Swipe(from, to, duration))
	})
}

// DispatchRecordedGesture runs a captured tap through to the application
// underneath the overlay.
func (e *Engine) DispatchRecordedGesture(x, y float64) (<-chan gesture.Result, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	return e.controller.EnqueueTap(x, y)
}

func (e *Engine) DispatchRecordedSwipe(x1, y1, x2, y2 float64, duration time.Duration) (<-chan gesture.Result, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	return e.controller.EnqueueSwipe(x1, y1, x2, y2, duration)
}

func (e *Engine) SetRecordingMode(on bool) {
	if e.recording.Swap(on) != on {
		utils.Verbose("recording mode: %t", on)
	}
}

func (e *Engine) RecordingMode() bool {
	return e.recording.Load()
}

// SetHudRect stores the HUD's on-screen rectangle. It is reported by Status
// and not used to filter anything.
func (e *Engine) SetHudRect(rect types.PixelRect) error {
	return e.post("setHudRect", func() {
		r := rect
		e.hudRect = &r
	})
}

func (e *Engine) RequestInputFocus() error {
	return e.post("requestInputFocus", e.focus.RequestFocus)
}

func (e *Engine) ClearInputFocus() error {
	return e.post("clearInputFocus", e.focus.ClearFocus)
}

// OpenFilePicker reads the document bound to slot in the background and hands
// it to the HUD on the loop. Failures deliver nothing.
func (e *Engine) OpenFilePicker(slot string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if e.opts.Picker == nil {
		return fmt.Errorf("no file picker configured")
	}

	go func() {
		picked, err := e.opts.Picker.Pick(e.ctx, slot)
		if err != nil {
			if errors.Is(err, files.ErrCancelled) {
				utils.Verbose("openFilePicker %q: %v", slot, err)
			} else {
				utils.Warn("openFilePicker %q: %v", slot, err)
			}
			return
		}

		_ = e.post("filePicked", func() {
			if e.opts.HUD != nil {
				e.opts.HUD.FilePicked(slot, picked.FileName, picked.Content)
			}
		})
	}()
	return nil
}

// SaveFile writes content in the background. Errors are logged only.
func (e *Engine) SaveFile(fileName, content string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if e.opts.Saver == nil {
		return fmt.Errorf("no file saver configured")
	}

	go func() {
		if err := e.opts.Saver.Save(e.ctx, fileName, content); err != nil {
			utils.Warn("saveFile %q: %v", fileName, err)
		}
	}()
	return nil
}

// HandleRawTouch forwards a touch seen by the touch-capture window to the
// HUD, relative to the content window. In recording mode the touch is only
// captured; the native tap is issued later through DispatchRecordedGesture.
func (e *Engine) HandleRawTouch(ev TouchEvent) error {
	return e.post("touch", func() {
		content := e.store.Content()
		local := TouchEvent{
			Action: ev.Action,
			X:      ev.X - float64(content.X),
			Y:      ev.Y - float64(content.Y),
		}

		if e.opts.HUD != nil {
			e.opts.HUD.Touch(local)
		}

		if e.recording.Load() && ev.Action == "up" {
			utils.Verbose("recording mode: captured (%.0f,%.0f) without native tap", ev.X, ev.Y)
		}
	})
}

// Status is a point-in-time view of the engine.
type Status struct {
	Attached         bool                 `json:"attached"`
	Closed           bool                 `json:"closed"`
	Focus            string               `json:"focus"`
	ClearPending     bool                 `json:"clearPending"`
	RecordingMode    bool                 `json:"recordingMode"`
	GestureSupported bool                 `json:"gestureSupported"`
	Mapping          types.CanvasMapping  `json:"mapping"`
	LastRect         *types.OverlayRect   `json:"lastRect,omitempty"`
	HudRect          *types.PixelRect     `json:"hudRect,omitempty"`
	TouchCapture     types.WindowLayout   `json:"touchCapture"`
	Content          types.WindowLayout   `json:"content"`
	Metrics          types.DisplayMetrics `json:"metrics"`
	Passthrough      string               `json:"passthrough"`
	QueueDepth       int                  `json:"queueDepth"`
}

func (e *Engine) Status(ctx context.Context) (Status, error) {
	st := Status{
		Closed:           e.closed.Load(),
		RecordingMode:    e.recording.Load(),
		GestureSupported: e.dispatcher.Supported(),
		Metrics:          e.opts.Metrics,
		Passthrough:      e.controller.State().String(),
		QueueDepth:       e.controller.QueueDepth(),
		Focus:            TouchCaptureOwnsInput.String(),
	}
	if st.Closed {
		return st, nil
	}

	err := e.loop.Call(ctx, func() {
		snap := e.store.Snapshot()
		st.Attached = snap.Attached
		st.Mapping = snap.Mapping
		st.LastRect = snap.LastRect
		st.TouchCapture = snap.TouchCapture
		st.Content = snap.Content
		st.Focus = e.focus.State().String()
		st.ClearPending = e.focus.ClearPending()
		if e.hudRect != nil {
			r := *e.hudRect
			st.HudRect = &r
		}
	})
	if err != nil {
		return st, err
	}
	return st, nil
}

func (e *Engine) mapPoint(x, y float64) types.Point {
	return overlay.MapLogicalToPixel(e.store.Mapping(), e.store.Metrics().Density, x, y)
}

// watch logs the outcome of a direct dispatch without blocking the loop.
func (e *Engine) watch(op string, ch <-chan gesture.Result) {
	go func() {
		r := <-ch
		if r.Outcome == gesture.Cancelled {
			utils.Warn("%s %s: %s cancelled", op, r.ID, r.Stroke)
			return
		}
		utils.Verbose("%s %s: %s completed", op, r.ID, r.Stroke)
	}()
}
