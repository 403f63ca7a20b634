package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mobile-next/omniclick/gesture"
	"github.com/mobile-next/omniclick/looper"
	"github.com/mobile-next/omniclick/overlay"
	"github.com/mobile-next/omniclick/types"
	"github.com/mobile-next/omniclick/utils"
)

// ErrPassthroughBusy is returned when the passthrough queue is full.
var ErrPassthroughBusy = errors.New("passthrough queue is full")

// PassthroughState tracks a single recorded gesture through its sequence.
type PassthroughState int32

const (
	Idle PassthroughState = iota
	CaptureReceived
	OverlaysHidden
	SettleWait
	Dispatching
	PassthroughCompleted
	PassthroughCancelled
	OverlaysRestored
)

var passthroughStateNames = map[PassthroughState]string{
	Idle:                 "idle",
	CaptureReceived:      "capture-received",
	OverlaysHidden:       "overlays-hidden",
	SettleWait:           "settle-wait",
	Dispatching:          "dispatching",
	PassthroughCompleted: "completed",
	PassthroughCancelled: "cancelled",
	OverlaysRestored:     "overlays-restored",
}

func (s PassthroughState) String() string {
	if name, ok := passthroughStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// logicalPoint is a coordinate in HUD logical units.
type logicalPoint struct {
	X, Y float64
}

type passthroughRequest struct {
	id       string
	swipe    bool
	from, to types.Point // display pixels, mapped when the request was queued
	duration time.Duration
	result   chan gesture.Result
}

// Controller runs recorded gestures through to the application underneath
// the overlay: hide both windows, let the window manager settle, dispatch,
// then restore both windows once the gesture finishes either way. Requests are
// queued and run strictly one after another on a single worker.
type Controller struct {
	loop       *looper.Looper
	store      *overlay.Store
	dispatcher *gesture.Dispatcher
	settle     time.Duration
	timeout    time.Duration

	queue chan passthroughRequest
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
	state atomic.Int32

	// observe, when set, sees every state transition. Used by tests.
	observe func(PassthroughState)
}

func NewController(loop *looper.Looper, store *overlay.Store, dispatcher *gesture.Dispatcher, settle, timeout time.Duration, queueSize int) *Controller {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Controller{
		loop:       loop,
		store:      store,
		dispatcher: dispatcher,
		settle:     settle,
		timeout:    timeout,
		queue:      make(chan passthroughRequest, queueSize),
		quit:       make(chan struct{}),
	}
}

func (c *Controller) Start() {
	c.wg.Add(1)
	go c.work()
}

// Stop ends the worker. Queued requests are reported as cancelled.
func (c *Controller) Stop() {
	c.once.Do(func() {
		close(c.quit)
	})
	c.wg.Wait()
}

func (c *Controller) State() PassthroughState {
	return PassthroughState(c.state.Load())
}

// QueueDepth returns how many requests are waiting behind the current one.
func (c *Controller) QueueDepth() int {
	return len(c.queue)
}

// EnqueueTap queues a recorded tap at a logical coordinate.
func (c *Controller) EnqueueTap(x, y float64) (<-chan gesture.Result, error) {
	p := logicalPoint{X: x, Y: y}
	return c.enqueue(passthroughRequest{}, p, p)
}

// EnqueueSwipe queues a recorded swipe between logical coordinates.
func (c *Controller) EnqueueSwipe(x1, y1, x2, y2 float64, duration time.Duration) (<-chan gesture.Result, error) {
	return c.enqueue(passthroughRequest{swipe: true, duration: duration},
		logicalPoint{X: x1, Y: y1}, logicalPoint{X: x2, Y: y2})
}

// enqueue maps the request on the loop, against the overlay rect in effect
// when it arrives, and queues it there without blocking.
func (c *Controller) enqueue(req passthroughRequest, from, to logicalPoint) (<-chan gesture.Result, error) {
	req.id = uuid.NewString()
	req.result = make(chan gesture.Result, 1)
	log := utils.WithField("passthrough", req.id)

	select {
	case <-c.quit:
		return nil, ErrClosed
	default:
	}

	queued := false
	err := c.loop.Call(context.Background(), func() {
		mapping := c.store.Mapping()
		density := c.store.Metrics().Density
		req.from = overlay.MapLogicalToPixel(mapping, density, from.X, from.Y)
		req.to = overlay.MapLogicalToPixel(mapping, density, to.X, to.Y)

		select {
		case c.queue <- req:
			queued = true
		default:
		}
	})
	if err != nil {
		return nil, ErrClosed
	}

	if !queued {
		log.Warnf("rejected: %v", ErrPassthroughBusy)
		return nil, ErrPassthroughBusy
	}
	log.Debugf("queued at (%.0f,%.0f), depth %d", req.from.X, req.from.Y, len(c.queue))
	return req.result, nil
}

func (c *Controller) work() {
	defer c.wg.Done()

	for {
		select {
		case <-c.quit:
			c.drain()
			return
		case req := <-c.queue:
			c.run(req)
		}
	}
}

func (c *Controller) drain() {
	for {
		select {
		case req := <-c.queue:
			req.result <- gesture.Result{ID: req.id, Outcome: gesture.Cancelled}
		default:
			return
		}
	}
}

func (c *Controller) run(req passthroughRequest) {
	ctx := context.Background()
	result := gesture.Result{ID: req.id, Outcome: gesture.Cancelled}
	defer func() {
		c.transition(Idle)
		req.result <- result
	}()

	log := utils.WithField("passthrough", req.id)
	c.transition(CaptureReceived)

	err := c.loop.Call(ctx, func() {
		c.store.HideTouchCapture()
		c.store.HideContentWindow()
	})
	if err != nil {
		log.Warnf("could not hide overlays: %v", err)
		return
	}
	c.transition(OverlaysHidden)

	// once the overlays are hidden the gesture is dispatched, even if the
	// engine is shutting down, so the restore below always pairs with a hide
	c.transition(SettleWait)
	time.Sleep(c.settle)

	stroke := c.dispatcher.TapStroke(req.from)
	if req.swipe {
		stroke = c.dispatcher.SwipeStroke(req.from, req.to, req.duration)
	}

	var pending <-chan gesture.Result
	err = c.loop.Call(ctx, func() {
		pending = c.dispatcher.Dispatch(stroke)
	})
	if err == nil {
		c.transition(Dispatching)
		result = c.await(req.id, pending, stroke)
		result.ID = req.id
	} else {
		log.Warnf("dispatch skipped: %v", err)
	}

	if result.Outcome == gesture.Completed {
		c.transition(PassthroughCompleted)
	} else {
		c.transition(PassthroughCancelled)
	}

	err = c.loop.Call(ctx, func() {
		c.store.RestoreContentWindow()
		c.store.RestoreTouchCapture()
	})
	if err != nil {
		log.Warnf("could not restore overlays: %v", err)
		return
	}
	c.transition(OverlaysRestored)
}

// await waits for the gesture's terminal event. A platform that never reports
// back is treated as a cancellation after the timeout so the overlays are not
// left hidden.
func (c *Controller) await(id string, pending <-chan gesture.Result, stroke gesture.Stroke) gesture.Result {
	timer := time.NewTimer(stroke.Duration + c.timeout)
	defer timer.Stop()

	select {
	case r := <-pending:
		return r
	case <-timer.C:
		utils.Warn("passthrough %s: no result after %s, forcing restore", id, stroke.Duration+c.timeout)
		return gesture.Result{ID: id, Outcome: gesture.Cancelled, Stroke: stroke}
	case <-c.quit:
		utils.Warn("passthrough %s: shutting down while dispatching", id)
		return gesture.Result{ID: id, Outcome: gesture.Cancelled, Stroke: stroke}
	}
}

func (c *Controller) transition(s PassthroughState) {
	c.state.Store(int32(s))
	utils.Verbose("passthrough: %s", s)
	if c.observe != nil {
		c.observe(s)
	}
}
